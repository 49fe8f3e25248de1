package domain

import "github.com/DRSN-tech/cryptoshop-bot/pkg/e"

// AdminSet — неизменяемое множество идентификаторов администраторов.
// Передаётся явно во все точки входа админских операций.
type AdminSet map[int64]struct{}

func NewAdminSet(ids ...int64) AdminSet {
	set := make(AdminSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (a AdminSet) IsAdmin(userID int64) bool {
	_, ok := a[userID]
	return ok
}

// IDs возвращает идентификаторы в произвольном порядке.
func (a AdminSet) IDs() []int64 {
	ids := make([]int64, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	return ids
}

// Admin — подтверждённый администратор. Получить значение можно только через AdminSet.Authorize,
// поэтому наличие Admin в сигнатуре означает, что проверка прав уже пройдена.
type Admin struct {
	id int64
}

func (a Admin) ID() int64 {
	return a.id
}

// Valid отсекает нулевое значение Admin{}.
func (a Admin) Valid() bool {
	return a.id != 0
}

// Authorize проверяет пользователя по множеству админов.
func (a AdminSet) Authorize(userID int64) (Admin, error) {
	if userID == 0 || !a.IsAdmin(userID) {
		return Admin{}, e.ErrNotAdmin
	}
	return Admin{id: userID}, nil
}
