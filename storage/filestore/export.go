package filestore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/giygas/medicament-rotations/entities"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// record is one element of the mobile application's medicines.json export.
// Only the fields the rotation engine reads are typed; everything else is
// kept verbatim in raw so a write-back never drops data.
type record struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Frequency      string `json:"frequency"`
	StartDate      int64  `json:"startDate"`
	LastTakenTime  int64  `json:"lastTakenTime"`
	CreatedAt      int64  `json:"createdAt"`
	GroupID        *int64 `json:"groupId"`
	GroupName      string `json:"groupName"`
	GroupOrder     int    `json:"groupOrder"`
	GroupStartDate int64  `json:"groupStartDate"`
	GroupFrequency string `json:"groupFrequency"`

	raw map[string]json.RawMessage
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// toUTF8 converts export bytes to UTF-8. Valid UTF-8 is used as is; other
// input is decoded with the declared charset, Windows-1251 when none is set.
func toUTF8(data []byte, charset string) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}

	var enc encoding.Encoding = charmap.Windows1251
	if charset != "" {
		declared, err := ianaindex.IANA.Encoding(charset)
		if err != nil {
			return nil, fmt.Errorf("unknown charset %q: %w", charset, err)
		}
		if declared == nil {
			return nil, fmt.Errorf("unsupported charset %q", charset)
		}
		enc = declared
	}

	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	return decoded, nil
}

// decodeExport parses the export into records
func decodeExport(data []byte) ([]*record, error) {
	var records []*record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	var raws []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}

	for i, r := range records {
		if r == nil || raws[i] == nil {
			return nil, fmt.Errorf("parse export: record #%d is null", i+1)
		}
		r.raw = raws[i]
	}
	return records, nil
}

// encodeExport writes the records back with their untouched fields
func encodeExport(records []*record) ([]byte, error) {
	raws := make([]map[string]json.RawMessage, 0, len(records))
	for _, r := range records {
		raws = append(raws, r.raw)
	}
	return json.MarshalIndent(raws, "", "  ")
}

func (r *record) set(key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	r.raw[key] = encoded
	return nil
}

func (r *record) medicineID() string {
	return strconv.FormatInt(r.ID, 10)
}

// toMedicine maps the record onto the rotation model. Timestamps are bucketed
// into civil days in loc. ok is false for recurrence patterns the engine does
// not schedule.
func (r *record) toMedicine(loc *time.Location) (m entities.Medicine, ok bool) {
	m = entities.Medicine{
		ID:        r.medicineID(),
		Name:      r.Name,
		GroupName: r.GroupName,
	}

	pattern := r.Frequency
	if r.GroupID != nil && *r.GroupID != 0 {
		m.GroupID = strconv.FormatInt(*r.GroupID, 10)
		m.GroupOrder = r.GroupOrder
		if r.GroupStartDate > 0 {
			m.GroupStartDate = entities.DayOf(time.UnixMilli(r.GroupStartDate).In(loc))
		}
		if r.GroupFrequency != "" {
			pattern = r.GroupFrequency
		}
	}

	freq, err := entities.ParseFrequency(pattern)
	if err != nil {
		return m, false
	}
	m.Frequency = freq

	if r.StartDate > 0 {
		m.ScheduleAnchor = entities.DayOf(time.UnixMilli(r.StartDate).In(loc))
	}
	if r.LastTakenTime > 0 {
		taken := time.UnixMilli(r.LastTakenTime).In(loc)
		m.LastTakenAt = &taken
	}
	if r.CreatedAt > 0 {
		m.CreatedAt = time.UnixMilli(r.CreatedAt).In(loc)
	}
	return m, true
}

// applyGroupFields writes patched group fields in the export's own encoding
func (r *record) applyGroupFields(f entities.GroupFields, loc *time.Location) error {
	groupID, err := strconv.ParseInt(f.GroupID, 10, 64)
	if err != nil {
		return fmt.Errorf("group id %q is not numeric: %w", f.GroupID, err)
	}
	startMillis := f.GroupStartDate.In(loc).UnixMilli()

	if err := r.set("groupId", groupID); err != nil {
		return err
	}
	if err := r.set("groupStartDate", startMillis); err != nil {
		return err
	}
	if err := r.set("groupOrder", f.GroupOrder); err != nil {
		return err
	}
	r.GroupID = &groupID
	r.GroupStartDate = startMillis
	r.GroupOrder = f.GroupOrder
	return nil
}

// recordIntake moves lastTakenTime forward to at. It reports false when at
// is not newer than the stored value.
func (r *record) recordIntake(at time.Time) (bool, error) {
	millis := at.UnixMilli()
	if millis <= r.LastTakenTime {
		return false, nil
	}
	if err := r.set("lastTakenTime", millis); err != nil {
		return false, err
	}
	r.LastTakenTime = millis
	return true, nil
}
