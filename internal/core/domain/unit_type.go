package domain

import (
	"fmt"
	"strings"
)

// UnitType - закрытый набор типов планировок квартир
type UnitType string

const (
	UnitType1PN       UnitType = "1PN"
	UnitType2PN       UnitType = "2PN"
	UnitType3PN       UnitType = "3PN"
	UnitTypeStudio    UnitType = "STUDIO"
	UnitTypePenthouse UnitType = "PENTHOUSE"
	UnitTypeDuplex    UnitType = "DUPLEX"
)

// AllUnitTypes возвращает все варианты в стабильном порядке
func AllUnitTypes() []UnitType {
	return []UnitType{UnitType1PN, UnitType2PN, UnitType3PN, UnitTypeStudio, UnitTypePenthouse, UnitTypeDuplex}
}

// apartmentTypeAliases: нормализованная метка из таблицы -> тип.
// Только для чтения, наружу не отдается.
var apartmentTypeAliases = map[string]UnitType{
	"1pn":            UnitType1PN,
	"1pn+":           UnitType1PN,
	"1 pn":           UnitType1PN,
	"1 pn+":          UnitType1PN,
	"1br":            UnitType1PN,
	"1 br":           UnitType1PN,
	"1 bedroom":      UnitType1PN,
	"1 phòng ngủ":    UnitType1PN,
	"1 phong ngu":    UnitType1PN,
	"2pn":            UnitType2PN,
	"2pn+":           UnitType2PN,
	"2 pn":           UnitType2PN,
	"2 pn+":          UnitType2PN,
	"2br":            UnitType2PN,
	"2 br":           UnitType2PN,
	"2 bedroom":      UnitType2PN,
	"2 bedrooms":     UnitType2PN,
	"2 phòng ngủ":    UnitType2PN,
	"2 phong ngu":    UnitType2PN,
	"3pn":            UnitType3PN,
	"3pn+":           UnitType3PN,
	"3 pn":           UnitType3PN,
	"3 pn+":          UnitType3PN,
	"3br":            UnitType3PN,
	"3 br":           UnitType3PN,
	"3 bedroom":      UnitType3PN,
	"3 bedrooms":     UnitType3PN,
	"3 phòng ngủ":    UnitType3PN,
	"3 phong ngu":    UnitType3PN,
	"studio":         UnitTypeStudio,
	"căn studio":     UnitTypeStudio,
	"can studio":     UnitTypeStudio,
	"penthouse":      UnitTypePenthouse,
	"pent house":     UnitTypePenthouse,
	"duplex":         UnitTypeDuplex,
	"căn duplex":     UnitTypeDuplex,
	"can duplex":     UnitTypeDuplex,
	"căn thông tầng": UnitTypeDuplex,
	"can thong tang": UnitTypeDuplex,
}

// unitTypeSheetLabels - обратная таблица: как тип записывается обратно в лист
var unitTypeSheetLabels = map[UnitType]string{
	UnitType1PN:       "1PN",
	UnitType2PN:       "2PN",
	UnitType3PN:       "3PN",
	UnitTypeStudio:    "Studio",
	UnitTypePenthouse: "Penthouse",
	UnitTypeDuplex:    "Duplex",
}

// normalizeLabel: trim + lower + схлопывание пробелов внутри
func normalizeLabel(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

// MapApartmentType переводит свободный текст из колонки "Loại căn" в UnitType.
// Для всего, чего нет в таблице алиасов, возвращает false.
func MapApartmentType(raw string) (UnitType, bool) {
	key := normalizeLabel(raw)
	if key == "" {
		return "", false
	}
	if unitType, ok := apartmentTypeAliases[key]; ok {
		return unitType, true
	}
	// метки без диакритики и в NFD-форме
	unitType, ok := apartmentTypeAliases[FoldDiacritics(key)]
	return unitType, ok
}

// SheetLabel возвращает метку для записи в лист (обратное отображение)
func SheetLabel(unitType UnitType) string {
	if label, ok := unitTypeSheetLabels[unitType]; ok {
		return label
	}
	return string(unitType)
}

// ParseUnitType принимает только канонические значения enum (из БД или API)
func ParseUnitType(s string) (UnitType, error) {
	candidate := UnitType(strings.ToUpper(strings.TrimSpace(s)))
	for _, u := range AllUnitTypes() {
		if u == candidate {
			return u, nil
		}
	}
	return "", fmt.Errorf("unknown unit type %q", s)
}
