package sqlstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wadjakorntonsri/go-link-in-bio/pkg/core/domain"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	repo, err := New("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func insertLink(t *testing.T, repo *Repository, id, principal string, order int64) {
	t.Helper()
	now := time.Now()
	err := repo.CreateLink(context.Background(), &domain.Link{
		ID: id, PrincipalID: principal, Title: "t-" + id, URL: "https://" + id + ".example",
		Order: order, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateLink(%s): %v", id, err)
	}
}

func ids(links []domain.Link) string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.ID
	}
	return strings.Join(out, ",")
}

func TestDriverFor(t *testing.T) {
	tests := []struct {
		url     string
		driver  string
		dialect dialect
	}{
		{"file:db.sqlite", "sqlite", dialectSQLite},
		{"libsql://db.turso.io?authToken=x", "libsql", dialectSQLite},
		{"wss://db.turso.io", "libsql", dialectSQLite},
		{"postgres://u:p@localhost/db", "pgx", dialectPostgres},
		{"postgresql://localhost/db", "pgx", dialectPostgres},
	}
	for _, tt := range tests {
		driver, d := driverFor(tt.url)
		if driver != tt.driver || d != tt.dialect {
			t.Errorf("driverFor(%q) = %s,%d want %s,%d", tt.url, driver, d, tt.driver, tt.dialect)
		}
	}
}

func TestRebind(t *testing.T) {
	pg := &Repository{dialect: dialectPostgres}
	got := pg.rebind(`UPDATE links SET a = ?, b = ? WHERE id = ?`)
	if want := `UPDATE links SET a = $1, b = $2 WHERE id = $3`; got != want {
		t.Errorf("rebind = %q, want %q", got, want)
	}
	lite := &Repository{dialect: dialectSQLite}
	if got := lite.rebind(`x = ?`); got != `x = ?` {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
}

func TestListLinksOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	insertLink(t, repo, "b", "p1", 200)
	insertLink(t, repo, "a", "p1", 100)
	insertLink(t, repo, "tie1", "p1", 300)
	insertLink(t, repo, "tie2", "p1", 300)
	insertLink(t, repo, "other", "p2", 1)

	links, err := repo.ListLinks(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(links); got != "a,b,tie1,tie2" {
		t.Errorf("order = %s", got)
	}

	empty, err := repo.ListLinks(ctx, "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", empty)
	}

	count, err := repo.CountLinks(ctx, "p1")
	if err != nil || count != 4 {
		t.Errorf("CountLinks = %d, %v", count, err)
	}
}

func TestUpdateAndDeleteScopedToPrincipal(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	insertLink(t, repo, "l1", "owner", 1)

	err := repo.UpdateLink(ctx, &domain.Link{ID: "l1", PrincipalID: "intruder", Title: "x", URL: "https://x", UpdatedAt: time.Now()})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("foreign update: expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteLink(ctx, "intruder", "l1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("foreign delete: expected ErrNotFound, got %v", err)
	}

	err = repo.UpdateLink(ctx, &domain.Link{ID: "l1", PrincipalID: "owner", Title: "New", URL: "https://new.example", UpdatedAt: time.Now()})
	if err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetLink(ctx, "l1")
	if err != nil || got == nil {
		t.Fatalf("GetLink: %v, %v", got, err)
	}
	if got.Title != "New" || got.URL != "https://new.example" {
		t.Errorf("update not persisted: %+v", got)
	}

	if err := repo.DeleteLink(ctx, "owner", "l1"); err != nil {
		t.Fatal(err)
	}
	if got, _ := repo.GetLink(ctx, "l1"); got != nil {
		t.Errorf("expected link gone, got %+v", got)
	}
}

func TestSetLinkOrdersIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	insertLink(t, repo, "a", "p1", 1)
	insertLink(t, repo, "b", "p1", 2)
	insertLink(t, repo, "c", "p1", 3)
	insertLink(t, repo, "x", "p2", 0)

	for i := 0; i < 2; i++ {
		if err := repo.SetLinkOrders(ctx, "p1", []string{"c", "x", "a", "b"}); err != nil {
			t.Fatal(err)
		}
		links, _ := repo.ListLinks(ctx, "p1")
		if got := ids(links); got != "c,a,b" {
			t.Errorf("run %d: order = %s", i, got)
		}
	}

	foreign, _ := repo.GetLink(ctx, "x")
	if foreign.Order != 0 {
		t.Errorf("foreign link order changed to %d", foreign.Order)
	}
}

func TestUpsertUsername(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.UpsertUsername(ctx, domain.UsernameRecord{PrincipalID: "p1", Username: "alice"}); err != nil {
		t.Fatal(err)
	}
	// same owner, same name
	if err := repo.UpsertUsername(ctx, domain.UsernameRecord{PrincipalID: "p1", Username: "alice"}); err != nil {
		t.Fatalf("re-claim own name: %v", err)
	}
	err := repo.UpsertUsername(ctx, domain.UsernameRecord{PrincipalID: "p2", Username: "alice"})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	// rename frees the old name
	if err := repo.UpsertUsername(ctx, domain.UsernameRecord{PrincipalID: "p1", Username: "alice2"}); err != nil {
		t.Fatal(err)
	}
	if rec, _ := repo.GetByUsername(ctx, "alice"); rec != nil {
		t.Errorf("old name still held: %+v", rec)
	}
	rec, err := repo.GetByPrincipal(ctx, "p1")
	if err != nil || rec == nil || rec.Username != "alice2" {
		t.Errorf("GetByPrincipal = %+v, %v", rec, err)
	}

	// usernames are case-sensitive
	if err := repo.UpsertUsername(ctx, domain.UsernameRecord{PrincipalID: "p2", Username: "Alice2"}); err != nil {
		t.Errorf("case variant should be distinct: %v", err)
	}

	all, err := repo.DumpUsernames(ctx)
	if err != nil || len(all) != 2 {
		t.Errorf("DumpUsernames = %v, %v", all, err)
	}
}

func TestUpsertUsernameConcurrentClaims(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, principal := range []string{"p1", "p2"} {
		wg.Add(1)
		go func(i int, principal string) {
			defer wg.Done()
			errs[i] = repo.UpsertUsername(ctx, domain.UsernameRecord{PrincipalID: principal, Username: "contested"})
		}(i, principal)
	}
	wg.Wait()

	ok, taken := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrUsernameTaken):
			taken++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || taken != 1 {
		t.Errorf("expected one winner and one ErrUsernameTaken, got ok=%d taken=%d", ok, taken)
	}
}

func TestPrincipals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	exists, err := repo.PrincipalExists(ctx, "p1")
	if err != nil || exists {
		t.Fatalf("PrincipalExists before register = %v, %v", exists, err)
	}
	for i := 0; i < 2; i++ {
		if err := repo.RegisterPrincipal(ctx, "p1"); err != nil {
			t.Fatalf("RegisterPrincipal #%d: %v", i, err)
		}
	}
	exists, err = repo.PrincipalExists(ctx, "p1")
	if err != nil || !exists {
		t.Errorf("PrincipalExists after register = %v, %v", exists, err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if isUniqueViolation(nil) {
		t.Error("nil is not a violation")
	}
	if !isUniqueViolation(errors.New("SQLite error: UNIQUE constraint failed: usernames.username")) {
		t.Error("libsql string form not recognised")
	}
	if isUniqueViolation(errors.New("connection refused")) {
		t.Error("unrelated error treated as violation")
	}
}
