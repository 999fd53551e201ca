package specification

import (
	"strings"

	"gorm.io/gorm"
)

type ByName struct {
	Name string
}

func (s ByName) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("LOWER(name) = ?", strings.ToLower(s.Name))
}

type ByScale struct {
	Scale string
}

func (s ByScale) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("scale = ?", s.Scale)
}
