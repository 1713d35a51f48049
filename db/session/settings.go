package session

import (
	"fmt"
	"strings"
	"unicode"
)

// Column name mappers understood by Settings.NameMapper
const (
	MapperSnake = "snake"
	MapperLower = "lower"
	MapperNone  = "none"
)

// Settings is shared by every session factory. Per backend overrides are merged on top with Merge.
type Settings struct {
	NameMapper string `yaml:"name_mapper" json:"name_mapper" env:"NAME_MAPPER"`
	Trace      bool   `yaml:"trace" json:"trace" env:"TRACE"`
}

// Override holds the fields a single backend may change. Nil fields keep the shared value.
type Override struct {
	NameMapper *string `yaml:"name_mapper" json:"name_mapper"`
	Trace      *bool   `yaml:"trace" json:"trace"`
}

func (s Settings) Merge(o Override) Settings {
	if o.NameMapper != nil {
		s.NameMapper = *o.NameMapper
	}
	if o.Trace != nil {
		s.Trace = *o.Trace
	}
	return s
}

func (s Settings) Validate() error {
	_, err := s.Mapper()
	return err
}

// Mapper returns the struct field to column name function for s.NameMapper.
// An empty NameMapper means snake.
func (s Settings) Mapper() (func(string) string, error) {
	switch s.NameMapper {
	case "", MapperSnake:
		return ToSnake, nil
	case MapperLower:
		return strings.ToLower, nil
	case MapperNone:
		return func(s string) string { return s }, nil
	default:
		return nil, fmt.Errorf("unknown name mapper %q", s.NameMapper)
	}
}

// ToSnake converts a Go field name to snake_case, keeping acronyms together:
// "UserID" -> "user_id", "HTTPStatus" -> "http_status".
func ToSnake(name string) string {
	runes := []rune(name)
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
