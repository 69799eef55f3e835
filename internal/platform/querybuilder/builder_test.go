package querybuilder

import (
	"testing"
	"time"
)

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("*").
		From("matches").
		Where(Eq("tracking_enabled", true), Eq("status", "IN_PLAY")).
		OrderBy("kickoff_at ASC").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT * FROM matches WHERE tracking_enabled = $1 AND status = $2 ORDER BY kickoff_at ASC LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != true || args[1] != "IN_PLAY" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_KickoffWindowWithOffset(t *testing.T) {
	from := time.Date(2026, 5, 1, 14, 0, 0, 0, time.UTC)
	to := from.Add(5 * time.Hour)

	query, args, err := Select("id").
		From("matches").
		Where(Gte("kickoff_at", from), Lte("kickoff_at", to)).
		Limit(50).
		Offset(100).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id FROM matches WHERE kickoff_at >= $1 AND kickoff_at <= $2 LIMIT 50 OFFSET 100"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != from || args[1] != to {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("match_events").
		Columns("match_id", "event_type").
		Values("m1", "STATUS_CHANGE").
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO match_events (match_id, event_type) VALUES ($1, $2) RETURNING id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "m1" || args[1] != "STATUS_CHANGE" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder_MultiRow(t *testing.T) {
	query, args, err := InsertInto("match_events").
		Columns("match_id", "event_type").
		Values("m1", "STATUS_CHANGE").
		Values("m1", "SCORE_CHANGE").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO match_events (match_id, event_type) VALUES ($1, $2), ($3, $4)"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 || args[3] != "SCORE_CHANGE" {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, _, err := InsertInto("match_events").Columns("match_id", "event_type").Values("m1").ToSQL(); err == nil {
		t.Fatalf("expected short row to be rejected")
	}
}

func TestDeleteBuilder(t *testing.T) {
	query, args, err := DeleteFrom("matches").
		Where(Eq("status", "FINISHED")).
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		t.Fatalf("build delete query: %v", err)
	}

	wantQuery := "DELETE FROM matches WHERE status = $1 RETURNING id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != "FINISHED" {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, _, err := DeleteFrom("matches").ToSQL(); err == nil {
		t.Fatalf("expected unconditional delete to be rejected")
	}
}

func TestUpdateModel(t *testing.T) {
	type row struct {
		ID        string `db:"id"`
		Status    string `db:"status"`
		Tracking  bool   `db:"tracking_enabled"`
		CreatedAt string `db:"created_at"`
		ignored   string
	}

	query, args, err := UpdateModel("matches", row{ID: "m1", Status: "IN_PLAY", Tracking: true, CreatedAt: "now", ignored: "x"}, "id", "created_at")
	if err != nil {
		t.Fatalf("build update model query: %v", err)
	}

	wantQuery := "UPDATE matches SET status = $1, tracking_enabled = $2 WHERE id = $3"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[0] != "IN_PLAY" || args[1] != true || args[2] != "m1" {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, _, err := UpdateModel("matches", row{}, "uuid"); err == nil {
		t.Fatalf("expected missing key column to be rejected")
	}
	if _, _, err := Update("matches").Set("status", "FINISHED").ToSQL(); err == nil {
		t.Fatalf("expected unconditional update to be rejected")
	}
}
