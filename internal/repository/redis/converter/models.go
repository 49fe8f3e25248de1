package converter

import "time"

// ProductRedisModel — товар в закэшированном списке каталога.
type ProductRedisModel struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Image1      string    `json:"image_1"`
	Image2      string    `json:"image_2"`
	Coordinates string    `json:"coordinates"`
	CreatedAt   time.Time `json:"created_at"`
}
