package testhelper

import (
	"context"
	"testing"
	"time"
)

func TestSetupTestDB_Smoke(t *testing.T) {
	pool := SetupTestDB(t)

	userID := UniqueUserID()
	a := SeedAssignment(t, pool, userID, time.Now(), 1, "Кошка спит на диване.")

	var sentence string
	err := pool.QueryRow(
		context.Background(),
		`SELECT sentence FROM daily_sentences WHERE id = $1`,
		a.ID,
	).Scan(&sentence)
	if err != nil {
		t.Fatalf("expected assignment in DB, got error: %v", err)
	}

	if sentence != a.Text {
		t.Fatalf("expected sentence %q, got %q", a.Text, sentence)
	}
}
