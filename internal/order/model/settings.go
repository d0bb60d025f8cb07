package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultMaxMessagesPerHour = 10
	DefaultPrepMinutes        = 20
)

type TimeRange struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// DayHours is a parsed opening range in minutes since midnight. Close <= Open crosses midnight.
type DayHours struct {
	Open  int
	Close int
	Label string
}

func (h DayHours) crossesMidnight() bool {
	return h.Close < h.Open
}

type DeliveryZone struct {
	Name    string  `json:"name"`
	Cost    float64 `json:"cost"`
	Minutes int     `json:"minutes,omitempty"`
}

// RestaurantSettings is the typed, normalized form of the restaurant configuration.
// It is only ever built through ParseSettings or DefaultSettings.
type RestaurantSettings struct {
	Name               string
	Location           *time.Location
	OpeningHours       map[time.Weekday]DayHours
	DeliveryZones      []DeliveryZone
	PreparationTimes   map[string]int
	DefaultPrepMinutes int
	OffTopicKeywords   []string
	EscalationKeywords []string
	MaxMessagesPerHour int
}

type SettingsProvider interface {
	Settings(ctx context.Context, restaurantID string) (*RestaurantSettings, error)
}

func DefaultSettings() *RestaurantSettings {
	return &RestaurantSettings{
		Location:           time.UTC,
		OpeningHours:       map[time.Weekday]DayHours{},
		PreparationTimes:   map[string]int{},
		DefaultPrepMinutes: DefaultPrepMinutes,
		MaxMessagesPerHour: DefaultMaxMessagesPerHour,
	}
}

type rawSettings struct {
	RestaurantName     string          `json:"restaurantName"`
	Timezone           string          `json:"timezone"`
	OpeningHours       json.RawMessage `json:"openingHours"`
	DeliveryZones      json.RawMessage `json:"deliveryZones"`
	PreparationTimes   json.RawMessage `json:"preparationTimes"`
	FilterKeywords     json.RawMessage `json:"filterKeywords"`
	EscalationKeywords json.RawMessage `json:"escalationKeywords"`
	MaxMessagesPerHour *int            `json:"maxMessagesPerHour"`
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "domingo": time.Sunday,
	"monday": time.Monday, "lunes": time.Monday,
	"tuesday": time.Tuesday, "martes": time.Tuesday,
	"wednesday": time.Wednesday, "miercoles": time.Wednesday, "miércoles": time.Wednesday,
	"thursday": time.Thursday, "jueves": time.Thursday,
	"friday": time.Friday, "viernes": time.Friday,
	"saturday": time.Saturday, "sabado": time.Saturday, "sábado": time.Saturday,
}

// ParseSettings normalizes the stored JSON once. Nested fields may arrive either as JSON
// values or as JSON-encoded strings; both forms produce the same settings.
func ParseSettings(data []byte) (*RestaurantSettings, error) {
	s := DefaultSettings()
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}

	var raw rawSettings
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	s.Name = strings.TrimSpace(raw.RestaurantName)
	if tz := strings.TrimSpace(raw.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("timezone %q: %w", tz, err)
		}
		s.Location = loc
	}

	var hours map[string]TimeRange
	if err := decodeField(raw.OpeningHours, &hours); err != nil {
		return nil, fmt.Errorf("openingHours: %w", err)
	}
	for day, rng := range hours {
		wd, ok := weekdays[strings.ToLower(strings.TrimSpace(day))]
		if !ok {
			return nil, fmt.Errorf("openingHours: unknown day %q", day)
		}
		open, err := parseClock(rng.Open)
		if err != nil {
			return nil, fmt.Errorf("openingHours.%s.open: %w", day, err)
		}
		closing, err := parseClock(rng.Close)
		if err != nil {
			return nil, fmt.Errorf("openingHours.%s.close: %w", day, err)
		}
		s.OpeningHours[wd] = DayHours{Open: open, Close: closing, Label: rng.Open + " a " + rng.Close}
	}

	if err := decodeField(raw.DeliveryZones, &s.DeliveryZones); err != nil {
		return nil, fmt.Errorf("deliveryZones: %w", err)
	}

	var prep map[string]int
	if err := decodeField(raw.PreparationTimes, &prep); err != nil {
		return nil, fmt.Errorf("preparationTimes: %w", err)
	}
	for cat, minutes := range prep {
		if minutes <= 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(cat))
		if key == "default" {
			s.DefaultPrepMinutes = minutes
			continue
		}
		s.PreparationTimes[key] = minutes
	}

	if err := decodeField(raw.FilterKeywords, &s.OffTopicKeywords); err != nil {
		return nil, fmt.Errorf("filterKeywords: %w", err)
	}
	if err := decodeField(raw.EscalationKeywords, &s.EscalationKeywords); err != nil {
		return nil, fmt.Errorf("escalationKeywords: %w", err)
	}
	s.OffTopicKeywords = cleanKeywords(s.OffTopicKeywords)
	s.EscalationKeywords = cleanKeywords(s.EscalationKeywords)

	if raw.MaxMessagesPerHour != nil {
		if *raw.MaxMessagesPerHour < 0 {
			return nil, fmt.Errorf("maxMessagesPerHour must not be negative")
		}
		s.MaxMessagesPerHour = *raw.MaxMessagesPerHour
	}
	return s, nil
}

func decodeField(raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return err
		}
		if strings.TrimSpace(inner) == "" {
			return nil
		}
		raw = []byte(inner)
	}
	return json.Unmarshal(raw, dst)
}

func cleanKeywords(in []string) []string {
	out := in[:0]
	for _, k := range in {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", v)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// IsOpen reports whether now falls inside the opening hours. No hours configured means always open.
func (s *RestaurantSettings) IsOpen(now time.Time) bool {
	if s == nil || len(s.OpeningHours) == 0 {
		return true
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	t := now.In(loc)
	minute := t.Hour()*60 + t.Minute()

	if today, ok := s.OpeningHours[t.Weekday()]; ok {
		switch {
		case today.Open == today.Close:
			return true
		case today.crossesMidnight():
			if minute >= today.Open {
				return true
			}
		case minute >= today.Open && minute < today.Close:
			return true
		}
	}
	yesterday, ok := s.OpeningHours[(t.Weekday()+6)%7]
	return ok && yesterday.crossesMidnight() && minute < yesterday.Close
}

// HoursFor returns the label of the given day, empty when closed all day.
func (s *RestaurantSettings) HoursFor(day time.Weekday) string {
	if s == nil {
		return ""
	}
	return s.OpeningHours[day].Label
}

// PrepMinutes is the slowest preparation time among the given categories.
func (s *RestaurantSettings) PrepMinutes(categories []string) int {
	if s == nil {
		return DefaultPrepMinutes
	}
	best := 0
	for _, c := range categories {
		if m, ok := s.PreparationTimes[strings.ToLower(strings.TrimSpace(c))]; ok && m > best {
			best = m
		}
	}
	if best == 0 {
		best = s.DefaultPrepMinutes
	}
	return best
}
