package models

import "encoding/json"

// Entity is one submitted entity descriptor. Only entity_id is consumed by
// the prediction engine, which re-reads fresh attributes from the graph
// store; any additional submitted fields are preserved round-trip.
type Entity struct {
	EntityID string
	Extra    map[string]any
}

func (e Entity) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Extra)+1)
	for k, v := range e.Extra {
		m[k] = v
	}
	m["entity_id"] = e.EntityID
	return json.Marshal(m)
}

func (e *Entity) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if id, ok := m["entity_id"].(string); ok {
		e.EntityID = id
	}
	delete(m, "entity_id")
	if len(m) > 0 {
		e.Extra = m
	} else {
		e.Extra = nil
	}
	return nil
}

func (e Entity) clone() Entity {
	c := Entity{EntityID: e.EntityID}
	if e.Extra != nil {
		c.Extra = make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			c.Extra[k] = v
		}
	}
	return c
}
