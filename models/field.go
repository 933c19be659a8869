package models

import "time"

// FieldName identifies one of the fixed set of booking data fields.
type FieldName string

const (
	FieldFirstName       FieldName = "first_name"
	FieldLastName        FieldName = "last_name"
	FieldFullName        FieldName = "full_name"
	FieldPhone           FieldName = "phone"
	FieldVehicleBrand    FieldName = "vehicle_brand"
	FieldVehicleModel    FieldName = "vehicle_model"
	FieldVehiclePlate    FieldName = "vehicle_plate"
	FieldAppointmentDate FieldName = "appointment_date"
)

// AllFields lists every known field name.
var AllFields = []FieldName{
	FieldFirstName,
	FieldLastName,
	FieldFullName,
	FieldPhone,
	FieldVehicleBrand,
	FieldVehicleModel,
	FieldVehiclePlate,
	FieldAppointmentDate,
}

// RequiredFields is the full set a booking must carry before confirmation.
var RequiredFields = []FieldName{
	FieldFirstName,
	FieldVehicleBrand,
	FieldVehicleModel,
	FieldVehiclePlate,
	FieldAppointmentDate,
}

// SourceKind records which kind of source produced a field value.
type SourceKind string

const (
	SourceCurrentTurn    SourceKind = "current_turn_extraction"
	SourceRetroactive    SourceKind = "retroactive_extraction"
	SourceTypoCorrection SourceKind = "typo_correction"
	SourceUserEdit       SourceKind = "user_edit"
)

// Priority returns the tie-break rank of a source kind. Higher wins when
// confidences are equal.
func (s SourceKind) Priority() int {
	switch s {
	case SourceUserEdit:
		return 4
	case SourceTypoCorrection:
		return 3
	case SourceCurrentTurn:
		return 2
	case SourceRetroactive:
		return 1
	default:
		return 0
	}
}

// CanonicalField is the single authoritative value currently held for a field.
type CanonicalField struct {
	Value      string     `bson:"value" json:"value"`
	Confidence float64    `bson:"confidence" json:"confidence"` // 0.0 - 1.0
	Source     SourceKind `bson:"source" json:"source"`
	TurnIndex  int        `bson:"turn_index" json:"turn_index"` // turn at which it was accepted
	AcceptedAt time.Time  `bson:"accepted_at" json:"accepted_at"`
}

// CandidateMutation is a proposed, unconfirmed update to a field. Candidates
// are ephemeral: they are evaluated against the canonical field and then
// discarded, never stored.
type CandidateMutation struct {
	Field      FieldName  `json:"field"`
	Value      string     `json:"value"`
	Confidence float64    `json:"confidence"`
	Source     SourceKind `json:"source"`
	TurnIndex  int        `json:"turn_index"`
}

// FieldStore holds at most one CanonicalField per field name for a
// conversation. Once Frozen (after cancellation) no further mutation is
// accepted.
type FieldStore struct {
	Fields map[FieldName]CanonicalField `bson:"fields" json:"fields"`
	Frozen bool                         `bson:"frozen" json:"frozen"`
}

// NewFieldStore returns an empty, unfrozen store.
func NewFieldStore() *FieldStore {
	return &FieldStore{Fields: make(map[FieldName]CanonicalField)}
}

// Get returns the canonical field and whether it is present.
func (fs *FieldStore) Get(name FieldName) (CanonicalField, bool) {
	f, ok := fs.Fields[name]
	return f, ok
}

// Has reports whether the field holds a non-placeholder value.
func (fs *FieldStore) Has(name FieldName) bool {
	f, ok := fs.Fields[name]
	return ok && f.Value != ""
}

// Missing returns the subset of names absent from the store.
func (fs *FieldStore) Missing(names []FieldName) []FieldName {
	var missing []FieldName
	for _, n := range names {
		if !fs.Has(n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// Snapshot returns a copy of the stored fields, safe to hand to callers.
func (fs *FieldStore) Snapshot() map[FieldName]CanonicalField {
	out := make(map[FieldName]CanonicalField, len(fs.Fields))
	for k, v := range fs.Fields {
		out[k] = v
	}
	return out
}
