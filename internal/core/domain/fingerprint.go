package domain

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Отпечаток содержимого записи. Одинаковое содержимое по обе стороны (лист/БД)
// дает одинаковый хэш, поэтому по нему определяем UNCHANGED и конфликты.

func fingerprintPart(val string) string {
	v := strings.ToLower(strings.TrimSpace(val))
	if v == "" {
		return "null"
	}
	return v
}

func fingerprintDecimal(val *decimal.Decimal) string {
	if val == nil {
		return "null"
	}
	return val.String()
}

func calculateFingerprint(parts []string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// ProjectFingerprint: имя, застройщик, адрес, статус. Extra в отпечаток не входят.
func ProjectFingerprint(name, developer, address string, status ProjectStatus) string {
	return calculateFingerprint([]string{
		ProjectNameKey(name),
		fingerprintPart(developer),
		fingerprintPart(address),
		fingerprintPart(string(status)),
	})
}

func LayoutFingerprint(projectName, layoutCode string, unitType UnitType, area decimal.Decimal, price *decimal.Decimal, imageIDs []string) string {
	images := make([]string, 0, len(imageIDs))
	for _, id := range imageIDs {
		if id = strings.TrimSpace(id); id != "" {
			images = append(images, id)
		}
	}
	return calculateFingerprint([]string{
		ProjectNameKey(projectName),
		fingerprintPart(layoutCode),
		string(unitType),
		area.String(),
		fingerprintDecimal(price),
		fingerprintPart(strings.Join(images, ",")),
	})
}

func (p ParsedDuAnData) Fingerprint() string {
	return ProjectFingerprint(p.Name, p.Developer, p.Address, p.Status)
}

func (p Project) Fingerprint() string {
	return ProjectFingerprint(p.Name, p.Developer, p.Address, p.Status)
}

// Fingerprint для строки без сопоставленного типа не определен - вернет "".
func (p ParsedLayoutData) Fingerprint() string {
	if p.MappedUnitType == nil {
		return ""
	}
	return LayoutFingerprint(p.ProjectName, p.LayoutCode, *p.MappedUnitType, p.Area, p.Price, p.ImageIDs)
}

func (l Layout) Fingerprint() string {
	return LayoutFingerprint(l.ProjectName, l.LayoutCode, l.UnitType, l.Area, l.Price, l.ImageIDs)
}
