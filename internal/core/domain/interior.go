package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrLayoutNotFound  = errors.New("layout not found")
)

// Project - проект (вкладка DuAn) в нашей БД
type Project struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	Slug      string            `json:"slug"`
	Developer string            `json:"developer,omitempty"`
	Address   string            `json:"address,omitempty"`
	Status    ProjectStatus     `json:"status"`
	Extra     map[string]string `json:"extra,omitempty"`
	SyncHash  string            `json:"sync_hash,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Layout - планировка (вкладка LayoutIDs) в нашей БД
type Layout struct {
	ID          uuid.UUID        `json:"id"`
	ProjectID   uuid.UUID        `json:"project_id"`
	ProjectSlug string           `json:"project_slug"`
	ProjectName string           `json:"project_name"`
	LayoutCode  string           `json:"layout_code,omitempty"`
	UnitType    UnitType         `json:"unit_type"`
	Area        decimal.Decimal  `json:"area"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	ImageIDs    []string         `json:"image_ids,omitempty"`
	SyncHash    string           `json:"sync_hash,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ProjectNameKey - естественный ключ проекта: имя без регистра и лишних пробелов
func ProjectNameKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// LayoutNaturalKey - естественный ключ планировки.
// Если в листе задан "Mã layout", он главнее, иначе тип + площадь.
func LayoutNaturalKey(projectSlug, layoutCode string, unitType UnitType, area decimal.Decimal) string {
	if code := strings.TrimSpace(layoutCode); code != "" {
		return fmt.Sprintf("%s/%s", projectSlug, strings.ToLower(code))
	}
	return fmt.Sprintf("%s/%s/%s", projectSlug, strings.ToLower(string(unitType)), area.String())
}

// Key - естественный ключ уже сохраненной планировки
func (l Layout) Key() string {
	return LayoutNaturalKey(l.ProjectSlug, l.LayoutCode, l.UnitType, l.Area)
}
