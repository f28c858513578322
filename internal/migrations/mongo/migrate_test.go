package mongo

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func findIndex(t *testing.T, models []mongo.IndexModel, field string) mongo.IndexModel {
	t.Helper()
	for _, m := range models {
		keys, ok := m.Keys.(bson.D)
		if !ok || len(keys) == 0 {
			continue
		}
		if keys[0].Key == field {
			return m
		}
	}
	t.Fatalf("no index starting with field %q", field)
	return mongo.IndexModel{}
}

func assertUniqueAmongActive(t *testing.T, m mongo.IndexModel, field string) {
	t.Helper()
	if m.Options == nil || m.Options.Unique == nil || !*m.Options.Unique {
		t.Errorf("%s index must be unique", field)
	}
	if m.Options == nil || m.Options.PartialFilterExpression == nil {
		t.Fatalf("%s index must be partial, scoped to active documents", field)
	}
	filter, ok := m.Options.PartialFilterExpression.(bson.M)
	if !ok || filter["active"] != true {
		t.Errorf("%s index partial filter = %v, want active: true", field, m.Options.PartialFilterExpression)
	}
}

// Uniqueness of email, document and plate among active records is enforced
// by the store, not just by the check inside the create transaction: two
// concurrent creates insert distinct documents and do not conflict, so the
// second insert must fail on the index.
func TestUniquePartialIndexes(t *testing.T) {
	assertUniqueAmongActive(t, findIndex(t, CustomersIndexes, "email"), "email")
	assertUniqueAmongActive(t, findIndex(t, CustomersIndexes, "document_id"), "document_id")
	assertUniqueAmongActive(t, findIndex(t, VehiclesIndexes, "plate"), "plate")
}

func TestOverlapQueryIndex(t *testing.T) {
	m := findIndex(t, ReservationsIndexes, "vehicle_id")
	keys := m.Keys.(bson.D)
	want := []string{"vehicle_id", "start_date", "end_date"}
	if len(keys) != len(want) {
		t.Fatalf("index has %d keys, want %d", len(keys), len(want))
	}
	for i, k := range keys {
		if k.Key != want[i] {
			t.Errorf("key[%d] = %s, want %s", i, k.Key, want[i])
		}
	}
}

func TestLockExpiryIndex(t *testing.T) {
	m := findIndex(t, ReservationLocksIndexes, "expires_at")
	if m.Options == nil || m.Options.ExpireAfterSeconds == nil {
		t.Fatal("expires_at index must set a TTL")
	}
	if *m.Options.ExpireAfterSeconds != 0 {
		t.Errorf("ExpireAfterSeconds = %d, want 0 so documents expire at expires_at", *m.Options.ExpireAfterSeconds)
	}
}
