package models

import "time"

// FieldProvenance records which source produced a booked field and with what
// confidence, for audit.
type FieldProvenance struct {
	Field      FieldName  `bson:"field" json:"field"`
	Source     SourceKind `bson:"source" json:"source"`
	Confidence float64    `bson:"confidence" json:"confidence"`
	TurnIndex  int        `bson:"turn_index" json:"turn_index"`
}

// BookingRecord is the immutable snapshot of the field store taken exactly
// once, at the CONFIRMATION -> COMPLETED transition.
type BookingRecord struct {
	ID             string               `bson:"id" json:"id"`
	ConversationID string               `bson:"conversation_id" json:"conversation_id"`
	Fields         map[FieldName]string `bson:"fields" json:"fields"`
	Provenance     []FieldProvenance    `bson:"provenance" json:"provenance"`
	CreatedAt      time.Time            `bson:"created_at" json:"created_at"`
}

// NewBookingRecord snapshots the given store into an immutable record.
func NewBookingRecord(id, conversationID string, store *FieldStore) *BookingRecord {
	rec := &BookingRecord{
		ID:             id,
		ConversationID: conversationID,
		Fields:         make(map[FieldName]string, len(store.Fields)),
		CreatedAt:      time.Now(),
	}
	for _, name := range AllFields {
		f, ok := store.Get(name)
		if !ok {
			continue
		}
		rec.Fields[name] = f.Value
		rec.Provenance = append(rec.Provenance, FieldProvenance{
			Field:      name,
			Source:     f.Source,
			Confidence: f.Confidence,
			TurnIndex:  f.TurnIndex,
		})
	}
	return rec
}
