package admin

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/changepassword/internal/actorctx"
	"github.com/geocoder89/changepassword/internal/domain/user"
	"github.com/geocoder89/changepassword/internal/http/handlers"
	"github.com/geocoder89/changepassword/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// Row is one rendered record, keyed by column name.
type Row map[string]any

type Formatter func(row Row) any

type ListQuery struct {
	Search   string
	Page     int // zero-based
	PageSize int
}

func (q ListQuery) Offset() int {
	return q.Page * q.PageSize
}

// Hooks is what a model view customises. Every hook receives the requesting
// principal explicitly; the scaffold does no authorization of its own.
type Hooks[T any] interface {
	Query(ctx context.Context, p user.Principal, q ListQuery) ([]T, error)
	Count(ctx context.Context, p user.Principal, q ListQuery) (int, error)
	Get(ctx context.Context, id string) (T, error)
	Prefill(ctx context.Context, p user.Principal, rec T) (Form, error)
	Create(ctx context.Context, p user.Principal, values Values) (T, error)
	Update(ctx context.Context, p user.Principal, values Values, rec T) (T, error)
	Delete(ctx context.Context, p user.Principal, rec T) error
	Render(rec T) Row
}

type ViewConfig struct {
	Name       string
	PluralName string
	Category   string
	URL        string

	Columns    []string
	Formatters map[string]Formatter
	Searchable []string

	PageSize       int
	MaxPageSize    int
	CanSetPageSize bool

	CanCreate bool
	CanEdit   bool
	CanDelete bool

	Timeout time.Duration
}

type ModelView[T any] struct {
	cfg     ViewConfig
	hooks   Hooks[T]
	flashes FlashStore
	log     *slog.Logger
}

func NewModelView[T any](cfg ViewConfig, hooks Hooks[T], flashes FlashStore, log *slog.Logger) *ModelView[T] {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	if cfg.MaxPageSize < cfg.PageSize {
		cfg.MaxPageSize = 500
	}
	if cfg.PluralName == "" {
		cfg.PluralName = cfg.Name
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &ModelView[T]{
		cfg:     cfg,
		hooks:   hooks,
		flashes: flashes,
		log:     log,
	}
}

func (v *ModelView[T]) Info() ViewInfo {
	return ViewInfo{Name: v.cfg.Name, Category: v.cfg.Category, URL: v.cfg.URL}
}

func (v *ModelView[T]) Register(rg *gin.RouterGroup) {
	rg.GET("", v.List)
	if v.cfg.CanEdit {
		rg.GET("/:id/edit", v.Edit)
		rg.PUT("/:id", v.Update)
	}
	if v.cfg.CanCreate {
		rg.POST("", v.Create)
	}
	if v.cfg.CanDelete {
		rg.DELETE("/:id", v.Delete)
	}
}

// GET /admin/<url>?q=&page=&page_size=
func (v *ModelView[T]) List(ctx *gin.Context) {
	p, ok := v.principal(ctx)
	if !ok {
		return
	}

	q, err := v.listQuery(ctx)
	if err != nil {
		handlers.RespondBadRequest(ctx, err.Error(), nil)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), v.cfg.Timeout)
	defer cancel()

	items, err := v.hooks.Query(cctx, p, q)
	if err != nil {
		v.fail(ctx, p, err, "Could not list records")
		return
	}

	total, err := v.hooks.Count(cctx, p, q)
	if err != nil {
		v.fail(ctx, p, err, "Could not count records")
		return
	}

	rows := make([]Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, v.render(item))
	}

	resp := gin.H{
		"view":     v.cfg.PluralName,
		"columns":  v.cfg.Columns,
		"items":    rows,
		"count":    total,
		"page":     q.Page,
		"pageSize": q.PageSize,
	}

	flashes := v.popFlashes(ctx, p)
	if len(flashes) > 0 {
		// flashes are one-shot, a 304 would swallow them
		resp["flashes"] = flashes
		ctx.JSON(http.StatusOK, resp)
		return
	}

	resp["flashes"] = []Flash{}
	handlers.RespondJSONWithETag(ctx, http.StatusOK, FlashKey(p)+"|"+p.Role, resp)
}

// GET /admin/<url>/:id/edit
func (v *ModelView[T]) Edit(ctx *gin.Context) {
	p, ok := v.principal(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), v.cfg.Timeout)
	defer cancel()

	rec, ok := v.load(ctx, cctx, p)
	if !ok {
		return
	}

	form, err := v.hooks.Prefill(cctx, p, rec)
	if err != nil {
		v.fail(ctx, p, err, "Could not prepare form")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"view":    v.cfg.Name,
		"item":    v.render(rec),
		"form":    form,
		"flashes": v.popFlashes(ctx, p),
	})
}

// POST /admin/<url>
func (v *ModelView[T]) Create(ctx *gin.Context) {
	p, ok := v.principal(ctx)
	if !ok {
		return
	}

	var values Values
	if !handlers.BindJSON(ctx, &values) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), v.cfg.Timeout)
	defer cancel()

	rec, err := v.hooks.Create(cctx, p, values)
	if err != nil {
		v.fail(ctx, p, err, "Could not create record")
		return
	}

	row := v.render(rec)
	if id, ok := row["id"].(string); ok {
		ctx.Set(middlewares.CtxRecordID, id)
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"item":    row,
		"flashes": v.popFlashes(ctx, p),
	})
}

// PUT /admin/<url>/:id
func (v *ModelView[T]) Update(ctx *gin.Context) {
	p, ok := v.principal(ctx)
	if !ok {
		return
	}

	var values Values
	if !handlers.BindJSON(ctx, &values) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), v.cfg.Timeout)
	defer cancel()

	rec, ok := v.load(ctx, cctx, p)
	if !ok {
		return
	}

	updated, err := v.hooks.Update(cctx, p, values, rec)
	if err != nil {
		v.fail(ctx, p, err, "Could not update record")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"item":    v.render(updated),
		"flashes": v.popFlashes(ctx, p),
	})
}

// DELETE /admin/<url>/:id
func (v *ModelView[T]) Delete(ctx *gin.Context) {
	p, ok := v.principal(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), v.cfg.Timeout)
	defer cancel()

	rec, ok := v.load(ctx, cctx, p)
	if !ok {
		return
	}

	if err := v.hooks.Delete(cctx, p, rec); err != nil {
		v.fail(ctx, p, err, "Could not delete record")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"deleted": ctx.Param("id"),
		"flashes": v.popFlashes(ctx, p),
	})
}

func (v *ModelView[T]) load(ctx *gin.Context, cctx context.Context, p user.Principal) (T, bool) {
	id := ctx.Param("id")
	ctx.Set(middlewares.CtxRecordID, id)

	rec, err := v.hooks.Get(cctx, id)
	if err != nil {
		v.fail(ctx, p, err, "Could not load record")
		var zero T
		return zero, false
	}
	return rec, true
}

func (v *ModelView[T]) principal(ctx *gin.Context) (user.Principal, bool) {
	p, ok := actorctx.PrincipalFrom(ctx.Request.Context())
	if !ok {
		handlers.RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return user.Principal{}, false
	}
	return p, true
}

func (v *ModelView[T]) listQuery(ctx *gin.Context) (ListQuery, error) {
	q := ListQuery{PageSize: v.cfg.PageSize}

	if len(v.cfg.Searchable) > 0 {
		q.Search = ctx.Query("q")
	}

	if s := ctx.Query("page_size"); s != "" && v.cfg.CanSetPageSize {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > v.cfg.MaxPageSize {
			return q, errors.New("page_size must be between 1 and " + strconv.Itoa(v.cfg.MaxPageSize))
		}
		q.PageSize = n
	}

	// page*page_size must stay a valid offset
	if s := ctx.Query("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > math.MaxInt/q.PageSize {
			return q, errors.New("page must be a non-negative number within range")
		}
		q.Page = n
	}

	return q, nil
}

func (v *ModelView[T]) render(rec T) Row {
	full := v.hooks.Render(rec)
	if len(v.cfg.Columns) == 0 {
		return full
	}

	row := make(Row, len(v.cfg.Columns))
	for _, col := range v.cfg.Columns {
		if f, ok := v.cfg.Formatters[col]; ok {
			row[col] = f(full)
			continue
		}
		row[col] = full[col]
	}
	return row
}

func (v *ModelView[T]) popFlashes(ctx *gin.Context, p user.Principal) []Flash {
	if v.flashes == nil {
		return []Flash{}
	}

	flashes, err := v.flashes.Pop(ctx.Request.Context(), FlashKey(p))
	if err != nil {
		v.log.WarnContext(ctx.Request.Context(), "admin: pop flashes failed", "err", err)
	}
	if flashes == nil {
		flashes = []Flash{}
	}
	return flashes
}

func (v *ModelView[T]) fail(ctx *gin.Context, p user.Principal, err error, message string) {
	details := gin.H{"flashes": v.popFlashes(ctx, p)}

	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		details["fields"] = ve.Fields
		handlers.RespondBadRequest(ctx, "Invalid form", details)
	case errors.Is(err, ErrInvalidForm):
		handlers.RespondBadRequest(ctx, "Invalid form", details)
	case errors.Is(err, ErrForbidden):
		handlers.RespondForbidden(ctx, "Not allowed", details)
	case errors.Is(err, ErrNotFound):
		handlers.RespondError(ctx, http.StatusNotFound, "not_found", "Record not found", details)
	case errors.Is(err, ErrConflict):
		handlers.RespondConflict(ctx, "conflict", "Record conflicts with an existing one", details)
	default:
		v.log.ErrorContext(ctx.Request.Context(), "admin: hook failed", "view", v.cfg.Name, "err", err)
		handlers.RespondError(ctx, http.StatusInternalServerError, "internal_error", message, details)
	}
}

// FlashKey is the per-principal bucket flashes are queued under.
func FlashKey(p user.Principal) string {
	if p.UserID != "" {
		return p.UserID
	}
	return "u:" + p.Username
}
