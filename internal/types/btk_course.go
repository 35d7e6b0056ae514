package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// BTKCourse is one catalog entry from the BTK Academy course inventory.
type BTKCourse struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Description string         `gorm:"column:description" json:"description"`
	Category    string         `gorm:"column:category;index" json:"category"`
	Keywords    datatypes.JSON `gorm:"column:keywords" json:"keywords,omitempty"`
	Duration    string         `gorm:"column:duration" json:"duration"`
	Level       string         `gorm:"column:level" json:"level"`
	URL         string         `gorm:"column:url" json:"url"`
	IsActive    bool           `gorm:"column:is_active;not null;index" json:"is_active"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (BTKCourse) TableName() string { return "btk_course" }

// KeywordList decodes the keywords column into out.
func (c *BTKCourse) KeywordList(out *[]string) error {
	if len(c.Keywords) == 0 {
		return nil
	}
	return json.Unmarshal(c.Keywords, out)
}

// MustJSONStrings builds a JSON array column value from literal strings.
// Panics only on encoder failure, which cannot happen for plain strings.
func MustJSONStrings(words ...string) datatypes.JSON {
	raw, err := json.Marshal(words)
	if err != nil {
		panic(err)
	}
	return datatypes.JSON(raw)
}
