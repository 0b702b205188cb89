// Package catalog provides game data: characters (subjects) and the talent
// text each talent slot carries.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/tidwall/gjson"
)

// ErrNotFound is returned for unknown subjects and slots.
var ErrNotFound = errors.New("not found in catalog")

// Talent is the raw text of one talent slot.
type Talent struct {
	Slot        int      `json:"slot"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Params      []string `json:"params,omitempty"`
}

// Subject is one character.
type Subject struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Element string   `json:"element,omitempty"`
	Talents []Talent `json:"talents"`
}

// Talent returns the talent in slot.
func (s Subject) Talent(slot int) (Talent, error) {
	i := slices.IndexFunc(s.Talents, func(t Talent) bool { return t.Slot == slot })
	if i < 0 {
		return Talent{}, fmt.Errorf("subject %s slot %d: %w", s.ID, slot, ErrNotFound)
	}
	return s.Talents[i], nil
}

// Source looks subjects up by id.
type Source interface {
	Subject(ctx context.Context, id string) (Subject, error)
}

// TalentOf is a convenience for Source lookups of a single slot.
func TalentOf(ctx context.Context, src Source, subjectID string, slot int) (Subject, Talent, error) {
	s, err := src.Subject(ctx, subjectID)
	if err != nil {
		return Subject{}, Talent{}, err
	}
	t, err := s.Talent(slot)
	if err != nil {
		return Subject{}, Talent{}, err
	}
	return s, t, nil
}

// StaticSource serves a catalog held in memory.
type StaticSource struct {
	byID map[string]Subject
}

// NewStaticSource indexes subjects by id.
func NewStaticSource(subjects []Subject) *StaticSource {
	byID := make(map[string]Subject, len(subjects))
	for _, s := range subjects {
		byID[s.ID] = s
	}
	return &StaticSource{byID: byID}
}

func (s *StaticSource) Subject(_ context.Context, id string) (Subject, error) {
	sub, ok := s.byID[id]
	if !ok {
		return Subject{}, fmt.Errorf("subject %s: %w", id, ErrNotFound)
	}
	return sub, nil
}

// Len returns the number of subjects.
func (s *StaticSource) Len() int { return len(s.byID) }

// ParseJSON reads a catalog document:
//
//	{"subjects":[{"id":..,"name":..,"element":..,"talents":[{"slot":1,"name":..,"description":..,"params":[..]}]}]}
func ParseJSON(data []byte) (*StaticSource, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("catalog is not valid JSON")
	}
	var subjects []Subject
	gjson.GetBytes(data, "subjects").ForEach(func(_, v gjson.Result) bool {
		s := Subject{
			ID:      v.Get("id").String(),
			Name:    v.Get("name").String(),
			Element: v.Get("element").String(),
		}
		v.Get("talents").ForEach(func(_, t gjson.Result) bool {
			talent := Talent{
				Slot:        int(t.Get("slot").Int()),
				Name:        t.Get("name").String(),
				Description: t.Get("description").String(),
			}
			t.Get("params").ForEach(func(_, p gjson.Result) bool {
				talent.Params = append(talent.Params, p.String())
				return true
			})
			s.Talents = append(s.Talents, talent)
			return true
		})
		if s.ID != "" {
			subjects = append(subjects, s)
		}
		return true
	})
	return NewStaticSource(subjects), nil
}

// LoadFile reads a catalog document from disk.
func LoadFile(path string) (*StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	src, err := ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	return src, nil
}
