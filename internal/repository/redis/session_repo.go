package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DRSN-tech/cryptoshop-bot/internal/cfg"
	"github.com/DRSN-tech/cryptoshop-bot/internal/conversation"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/clients"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

// deleteSessionScript удаляет сессию и снимает отметку активного диалога, если она указывает на неё.
var deleteSessionScript = r.NewScript(`
if redis.call("GET", KEYS[2]) == ARGV[1] then
	redis.call("DEL", KEYS[2])
end
return redis.call("DEL", KEYS[1])
`)

// SessionRepo хранит незавершённые диалоги. Каждая запись живёт ConversationTTL с последнего хода.
type SessionRepo struct {
	client *clients.RedisClient
	cfg    *cfg.RedisCfg
}

func NewSessionRepo(client *clients.RedisClient, cfg *cfg.RedisCfg) *SessionRepo {
	return &SessionRepo{
		client: client,
		cfg:    cfg,
	}
}

func (s *SessionRepo) Get(ctx context.Context, userID int64, kind conversation.FlowKind) (*conversation.Session, error) {
	data, err := s.client.Client.Get(ctx, sessionKey(userID, kind)).Bytes()
	if err != nil {
		if errors.Is(err, r.Nil) {
			return nil, e.ErrNoActiveFlow
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var session conversation.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: %v", e.ErrSessionCorrupt, err))
	}
	if session.Kind != kind || session.UserID != userID {
		return nil, e.Wrap(whereami.WhereAmI(), e.ErrSessionCorrupt)
	}

	return &session, nil
}

// Save пишет сессию и отметку активного диалога одной транзакцией MULTI/EXEC.
func (s *SessionRepo) Save(ctx context.Context, session conversation.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	pipe := s.client.Client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.UserID, session.Kind), data, s.cfg.ConversationTTL)
	pipe.Set(ctx, activeKey(session.UserID), string(session.Kind), s.cfg.ConversationTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (s *SessionRepo) Delete(ctx context.Context, userID int64, kind conversation.FlowKind) error {
	keys := []string{sessionKey(userID, kind), activeKey(userID)}
	if err := deleteSessionScript.Run(ctx, s.client.Client, keys, string(kind)).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (s *SessionRepo) Active(ctx context.Context, userID int64) (conversation.FlowKind, error) {
	kind, err := s.client.Client.Get(ctx, activeKey(userID)).Result()
	if err != nil {
		if errors.Is(err, r.Nil) {
			return "", e.ErrNoActiveFlow
		}
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	switch fk := conversation.FlowKind(kind); fk {
	case conversation.FlowProduct, conversation.FlowOrder:
		return fk, nil
	default:
		return "", e.Wrap(whereami.WhereAmI(), e.ErrSessionCorrupt)
	}
}

func sessionKey(userID int64, kind conversation.FlowKind) string {
	return fmt.Sprintf("conv:%d:%s", userID, kind)
}

func activeKey(userID int64) string {
	return fmt.Sprintf("conv:%d:active", userID)
}
