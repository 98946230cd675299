package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// StringList stores a list of strings as a JSON array in a single column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	b, err := asBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, (*[]string)(l))
}

// IDList stores a list of entity IDs as a JSON array in a single column.
type IDList []uint

// Value implements driver.Valuer.
func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]uint(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *IDList) Scan(value interface{}) error {
	if value == nil {
		*l = IDList{}
		return nil
	}
	b, err := asBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, (*[]uint)(l))
}

// Contains reports whether id is present in the list.
func (l IDList) Contains(id uint) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Add appends id if it is not already present and reports whether the
// list changed.
func (l *IDList) Add(id uint) bool {
	if l.Contains(id) {
		return false
	}
	*l = append(*l, id)
	return true
}

// Remove deletes id from the list and reports whether it was present.
func (l *IDList) Remove(id uint) bool {
	for i, v := range *l {
		if v == id {
			*l = append((*l)[:i], (*l)[i+1:]...)
			return true
		}
	}
	return false
}

// CollaboratorMap maps a signal ID to the IDs of group members who may edit
// that signal. In memory the keys are numeric; they are serialised as strings
// only at the storage boundary because JSON object keys must be strings.
type CollaboratorMap map[uint][]uint

// Value implements driver.Valuer.
func (m CollaboratorMap) Value() (driver.Value, error) {
	out := make(map[string][]uint, len(m))
	for signalID, userIDs := range m {
		out[strconv.FormatUint(uint64(signalID), 10)] = userIDs
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *CollaboratorMap) Scan(value interface{}) error {
	*m = CollaboratorMap{}
	if value == nil {
		return nil
	}
	b, err := asBytes(value)
	if err != nil {
		return err
	}
	var raw map[string][]uint
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for key, userIDs := range raw {
		signalID, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			// tolerate malformed keys from older rows rather than
			// failing the whole read
			continue
		}
		(*m)[uint(signalID)] = userIDs
	}
	return nil
}

// Contains reports whether userID is a collaborator for signalID.
func (m CollaboratorMap) Contains(signalID, userID uint) bool {
	for _, id := range m[signalID] {
		if id == userID {
			return true
		}
	}
	return false
}

// Add idempotently records userID as a collaborator for signalID and
// reports whether the map changed.
func (m CollaboratorMap) Add(signalID, userID uint) bool {
	if m.Contains(signalID, userID) {
		return false
	}
	m[signalID] = append(m[signalID], userID)
	return true
}

// Remove deletes userID from the entry for signalID, pruning the entry
// entirely when its list becomes empty. Reports whether userID was present.
func (m CollaboratorMap) Remove(signalID, userID uint) bool {
	ids := m[signalID]
	for i, id := range ids {
		if id == userID {
			ids = append(ids[:i], ids[i+1:]...)
			if len(ids) == 0 {
				delete(m, signalID)
			} else {
				m[signalID] = ids
			}
			return true
		}
	}
	return false
}

// RemoveUser strips userID from every entry, pruning entries whose list
// becomes empty.
func (m CollaboratorMap) RemoveUser(userID uint) {
	for signalID := range m {
		m.Remove(signalID, userID)
	}
}

// RemoveSignal deletes the entry for signalID entirely.
func (m CollaboratorMap) RemoveSignal(signalID uint) {
	delete(m, signalID)
}

// SignalIDs returns the map keys in ascending order.
func (m CollaboratorMap) SignalIDs() []uint {
	ids := make([]uint, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func asBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", value)
	}
}
