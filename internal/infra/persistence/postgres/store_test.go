package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"herdcore/internal/infra/persistence/postgres/testutil"
	"herdcore/pkg/domain"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, conn
}

func TestNewStoreCreatesStateTable(t *testing.T) {
	_, conn := openStub(t)
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE IF NOT EXISTS STATE") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got execs: %v", conn.Execs)
	}
}

func TestRunInTransactionPersistsAndReloads(t *testing.T) {
	store, conn := openStub(t)
	var id string
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		a, err := tx.CreateAnimal(domain.Animal{
			Base:      domain.Base{TenantID: "farm"},
			TagNumber: "PG-1",
			Stage:     domain.StageYoung,
			Sex:       domain.SexMale,
		})
		id = a.ID
		return err
	})
	if err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}
	payload, ok := conn.Payload("animals")
	if !ok || !strings.Contains(string(payload), "PG-1") {
		t.Fatalf("expected animals bucket to contain the record, got %s", payload)
	}
	if _, ok := conn.Payload("events"); !ok {
		t.Fatalf("expected events bucket written")
	}

	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return store.DB(), nil })
	defer restore()
	reloaded, err := NewStore(context.Background(), "ignored", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got, ok := reloaded.GetAnimal(id); !ok || got.TagNumber != "PG-1" {
		t.Fatalf("expected reloaded animal, got %+v ok=%v", got, ok)
	}
}

func TestRunInTransactionStopsOnUserError(t *testing.T) {
	store, conn := openStub(t)
	boom := errors.New("boom")
	_, err := store.RunInTransaction(context.Background(), func(domain.Transaction) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, ok := conn.Payload("animals"); ok {
		t.Fatalf("failed transaction must not persist")
	}
}

func TestRunInTransactionReportsPersistFailures(t *testing.T) {
	cases := []struct {
		name string
		set  func(*testutil.StubConn)
		want string
	}{
		{"begin", func(c *testutil.StubConn) { c.FailBegin = true }, "begin tx"},
		{"exec", func(c *testutil.StubConn) { c.FailExec = true }, "upsert animals"},
		{"commit", func(c *testutil.StubConn) { c.FailCommit = true }, "commit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, conn := openStub(t)
			tc.set(conn)
			_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
				_, err := tx.CreateAnimal(domain.Animal{TagNumber: "F"})
				return err
			})
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q error, got %v", tc.want, err)
			}
		})
	}
}

func TestNewStoreErrors(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("dial") })
	if _, err := NewStore(context.Background(), "", nil); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open error, got %v", err)
	}
	restore()

	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore = OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	if _, err := NewStore(context.Background(), "", nil); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping error, got %v", err)
	}
	restore()

	db, conn = testutil.NewStubDB()
	conn.State["animals"] = []byte("{broken")
	restore = OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), "", nil); err == nil || !strings.Contains(err.Error(), "decode animals") {
		t.Fatalf("expected decode error, got %v", err)
	}
}
