package stubstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-listsync/catalog"
	"github.com/goliatone/go-listsync/clock"
	"github.com/goliatone/go-listsync/pagination"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// MemoryDSN opens a private in-memory sqlite database. The store keeps a
// single connection so the database lives as long as the Store.
const MemoryDSN = ":memory:"

type recordRow struct {
	bun.BaseModel `bun:"table:listsync_records,alias:r"`

	ID        string    `bun:"id,pk"`
	Resource  string    `bun:"resource,notnull"`
	Seq       int64     `bun:"seq,notnull"`
	Search    string    `bun:"search,notnull"`
	Price     int64     `bun:"price,notnull"`
	Position  int       `bun:"position,notnull"`
	Body      string    `bun:"body,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// ListParams are the listing query parameters.
type ListParams struct {
	Limit  int
	SortBy string
	Search string
	Cursor string
}

// ListResult is one page of raw records.
type ListResult struct {
	Items      []json.RawMessage
	NextCursor string
}

// Store keeps catalog records in a single table addressed by resource.
type Store struct {
	db     *bun.DB
	mu     sync.Mutex
	seq    int64
	clock  clock.Clock
	limits pagination.LimitConfig
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for createdAt stamps.
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		s.clock = clock.OrReal(c)
	}
}

// WithLimits overrides the page size limits.
func WithLimits(cfg pagination.LimitConfig) Option {
	return func(s *Store) {
		s.limits = cfg
	}
}

// Open connects to driver using dsn. Call Init before use.
func Open(driver, dsn string, opts ...Option) (*Store, error) {
	if dsn == "" {
		return nil, goerrors.New("database dsn is required", goerrors.CategoryValidation)
	}

	var db *bun.DB
	switch driver {
	case DriverSQLite, "":
		sqldb, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "open sqlite")
		}
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "open postgres")
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, goerrors.New(fmt.Sprintf("unsupported driver %q", driver), goerrors.CategoryValidation).
			WithTextCode("UNSUPPORTED_DRIVER")
	}

	s := &Store{
		db:     db,
		clock:  clock.Real{},
		limits: pagination.DefaultLimitConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Init creates the schema and loads the sequence counter.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*recordRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "init schema")
	}
	if _, err := s.db.NewCreateIndex().Model((*recordRow)(nil)).IfNotExists().
		Index("idx_listsync_records_resource").Column("resource", "seq").Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "init index")
	}

	var maxSeq int64
	if err := s.db.NewSelect().Model((*recordRow)(nil)).
		ColumnExpr("COALESCE(MAX(r.seq), 0)").Scan(ctx, &maxSeq); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "load sequence")
	}

	s.mu.Lock()
	s.seq = maxSeq
	s.mu.Unlock()
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// List returns one page of resource records.
func (s *Store) List(ctx context.Context, resource string, params ListParams) (ListResult, error) {
	sorts, err := knownResource(resource)
	if err != nil {
		return ListResult{}, err
	}
	sortBy, err := pagination.NormalizeSort(params.SortBy, sorts)
	if err != nil {
		return ListResult{}, err
	}
	token := pageToken{Sort: sortBy, Search: strings.ToLower(strings.TrimSpace(params.Search))}
	offset, err := decodeCursor(params.Cursor, token)
	if err != nil {
		return ListResult{}, err
	}
	limit := pagination.ClampLimit(params.Limit, s.limits)

	var rows []recordRow
	q := s.db.NewSelect().Model(&rows).Where("r.resource = ?", resource)
	if token.Search != "" {
		q = q.Where(`r.search LIKE ? ESCAPE '\'`, likePattern(token.Search))
	}
	for _, order := range orderFor(sortBy) {
		q = q.OrderExpr(order)
	}
	if err := q.Limit(limit + 1).Offset(offset).Scan(ctx); err != nil {
		return ListResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, "list records")
	}

	result := ListResult{Items: make([]json.RawMessage, 0, limit)}
	if len(rows) > limit {
		rows = rows[:limit]
		token.Offset = offset + limit
		if result.NextCursor, err = encodeCursor(token); err != nil {
			return ListResult{}, err
		}
	}
	for _, row := range rows {
		result.Items = append(result.Items, json.RawMessage(row.Body))
	}
	return result, nil
}

// Get returns a single record.
func (s *Store) Get(ctx context.Context, resource, id string) (json.RawMessage, error) {
	if _, err := knownResource(resource); err != nil {
		return nil, err
	}
	row, err := s.find(ctx, s.db, resource, id)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(row.Body), nil
}

// Count returns the number of records of resource.
func (s *Store) Count(ctx context.Context, resource string) (int, error) {
	n, err := s.db.NewSelect().Model((*recordRow)(nil)).Where("r.resource = ?", resource).Count(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "count records")
	}
	return n, nil
}

// Create validates raw and stores it under a new id.
func (s *Store) Create(ctx context.Context, resource string, raw []byte) (json.RawMessage, error) {
	rec, err := catalog.Decode(resource, raw)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	row := recordRow{
		ID:        uuid.NewString(),
		Resource:  resource,
		Seq:       seq,
		Search:    strings.ToLower(rec.SearchText()),
		Price:     rec.SortPrice(),
		CreatedAt: s.clock.Now().UTC(),
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if resource == catalog.HeroSlides {
			n, err := tx.NewSelect().Model((*recordRow)(nil)).Where("r.resource = ?", resource).Count(ctx)
			if err != nil {
				return err
			}
			row.Position = n
		}
		body, err := stamp(raw, row.fields())
		if err != nil {
			return err
		}
		row.Body = body
		_, err = tx.NewInsert().Model(&row).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, storeError(err, "create record")
	}
	return json.RawMessage(row.Body), nil
}

// Update replaces the record id of resource with raw. The id, creation time
// and position are kept.
func (s *Store) Update(ctx context.Context, resource, id string, raw []byte) (json.RawMessage, error) {
	rec, err := catalog.Decode(resource, raw)
	if err != nil {
		return nil, err
	}

	var body string
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row, err := s.find(ctx, tx, resource, id)
		if err != nil {
			return err
		}
		row.Search = strings.ToLower(rec.SearchText())
		row.Price = rec.SortPrice()
		if row.Body, err = stamp(raw, row.fields()); err != nil {
			return err
		}
		_, err = tx.NewUpdate().Model(&row).Column("search", "price", "body").WherePK().Exec(ctx)
		body = row.Body
		return err
	})
	if err != nil {
		return nil, storeError(err, "update record")
	}
	return json.RawMessage(body), nil
}

// Delete removes the record id of resource.
func (s *Store) Delete(ctx context.Context, resource, id string) error {
	if _, err := knownResource(resource); err != nil {
		return err
	}
	res, err := s.db.NewDelete().Model((*recordRow)(nil)).
		Where("r.resource = ?", resource).Where("r.id = ?", id).Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "delete record")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(resource, id)
	}
	return nil
}

// Reorder assigns positions following order. order must list every record
// of resource exactly once.
func (s *Store) Reorder(ctx context.Context, resource string, order []string) error {
	if _, err := knownResource(resource); err != nil {
		return err
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var rows []recordRow
		if err := tx.NewSelect().Model(&rows).Where("r.resource = ?", resource).Scan(ctx); err != nil {
			return err
		}
		byID := make(map[string]recordRow, len(rows))
		for _, row := range rows {
			byID[row.ID] = row
		}
		if err := checkPermutation(order, byID); err != nil {
			return err
		}

		for position, id := range order {
			row := byID[id]
			row.Position = position
			var err error
			if row.Body, err = stamp([]byte(row.Body), row.fields()); err != nil {
				return err
			}
			if _, err := tx.NewUpdate().Model(&row).Column("position", "body").WherePK().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeError(err, "reorder records")
	}
	return nil
}

func (s *Store) find(ctx context.Context, db bun.IDB, resource, id string) (recordRow, error) {
	var row recordRow
	err := db.NewSelect().Model(&row).
		Where("r.resource = ?", resource).Where("r.id = ?", id).Limit(1).Scan(ctx)
	if goerrors.Is(err, sql.ErrNoRows) {
		return recordRow{}, notFound(resource, id)
	}
	if err != nil {
		return recordRow{}, goerrors.Wrap(err, goerrors.CategoryInternal, "find record")
	}
	return row, nil
}

// fields are the server owned attributes written into the record body.
func (r recordRow) fields() map[string]any {
	if r.Resource == catalog.HeroSlides {
		return map[string]any{"id": r.ID, "position": r.Position}
	}
	return map[string]any{"id": r.ID, "createdAt": r.CreatedAt.Format(time.RFC3339Nano)}
}

func stamp(raw []byte, fields map[string]any) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	body := map[string]any{}
	if err := dec.Decode(&body); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed record body").
			WithTextCode("MALFORMED_BODY")
	}
	for k, v := range fields {
		body[k] = v
	}
	out, err := json.Marshal(body)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "encode record body")
	}
	return string(out), nil
}

func checkPermutation(order []string, byID map[string]recordRow) error {
	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		if _, ok := byID[id]; !ok {
			return goerrors.New(fmt.Sprintf("unknown id %q in order", id), goerrors.CategoryBadInput).
				WithTextCode("INVALID_ORDER")
		}
		if _, dup := seen[id]; dup {
			return goerrors.New(fmt.Sprintf("duplicate id %q in order", id), goerrors.CategoryBadInput).
				WithTextCode("INVALID_ORDER")
		}
		seen[id] = struct{}{}
	}
	if len(seen) != len(byID) {
		return goerrors.New("order must list every record", goerrors.CategoryConflict).
			WithTextCode("STALE_ORDER")
	}
	return nil
}

func orderFor(sortBy string) []string {
	switch sortBy {
	case catalog.SortOldest:
		return []string{"r.seq ASC"}
	case catalog.SortPriceAsc:
		return []string{"r.price ASC", "r.seq ASC"}
	case catalog.SortPriceDesc:
		return []string{"r.price DESC", "r.seq DESC"}
	case catalog.SortTitle:
		return []string{"r.search ASC", "r.seq ASC"}
	case catalog.SortPosition:
		return []string{"r.position ASC", "r.seq ASC"}
	default:
		return []string{"r.seq DESC"}
	}
}

func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}

// pageToken is the opaque cursor payload. A token is only valid for the
// sort and search it was issued for.
type pageToken struct {
	Offset int    `msgpack:"o"`
	Sort   string `msgpack:"s"`
	Search string `msgpack:"q"`
}

func encodeCursor(token pageToken) (string, error) {
	raw, err := msgpack.Marshal(token)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "encode cursor")
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// decodeCursor returns the offset carried by cursor, zero for an empty one.
func decodeCursor(cursor string, want pageToken) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	var token pageToken
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err == nil {
		err = msgpack.Unmarshal(raw, &token)
	}
	if err != nil || token.Offset < 0 {
		return 0, goerrors.New("invalid cursor", goerrors.CategoryBadInput).WithTextCode("INVALID_CURSOR")
	}
	if token.Sort != want.Sort || token.Search != want.Search {
		return 0, goerrors.New("cursor was issued for a different query", goerrors.CategoryBadInput).
			WithTextCode("INVALID_CURSOR")
	}
	return token.Offset, nil
}

func knownResource(resource string) (pagination.SortConfig, error) {
	cfg, ok := catalog.SortConfig(resource)
	if !ok {
		return pagination.SortConfig{}, goerrors.New(fmt.Sprintf("unknown resource %q", resource), goerrors.CategoryNotFound).
			WithTextCode("UNKNOWN_RESOURCE")
	}
	return cfg, nil
}

func notFound(resource, id string) error {
	return goerrors.New(fmt.Sprintf("%s %s not found", resource, id), goerrors.CategoryNotFound).
		WithTextCode("RECORD_NOT_FOUND")
}

func storeError(err error, msg string) error {
	var gerr *goerrors.Error
	if goerrors.As(err, &gerr) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
