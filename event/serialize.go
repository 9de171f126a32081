package event

import "encoding/json"

// MarshalJSON flattens the kind-specific fields into the top-level object, the
// shape the server contract expects:
//
//	{"event_type":"email_compose","url":"...","timestamp":"...","email_to":"...",...}
func (e Event) MarshalJSON() ([]byte, error) {
	flat := make(map[string]string, len(e.Fields)+4)
	for k, v := range e.Fields {
		flat[k] = v
	}
	flat["id"] = e.ID
	flat["event_type"] = string(e.EventType)
	flat["url"] = e.URL
	flat["timestamp"] = e.Timestamp
	return json.Marshal(flat)
}

// UnmarshalJSON reverses MarshalJSON: known envelope keys become struct
// members, everything else lands in Fields.
func (e *Event) UnmarshalJSON(data []byte) error {
	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	e.ID = flat["id"]
	e.EventType = Kind(flat["event_type"])
	e.URL = flat["url"]
	e.Timestamp = flat["timestamp"]
	delete(flat, "id")
	delete(flat, "event_type")
	delete(flat, "url")
	delete(flat, "timestamp")
	e.Fields = flat
	return nil
}
