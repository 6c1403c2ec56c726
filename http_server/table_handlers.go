package http_server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danthegoodman1/icecatalog/catalog"
	"github.com/danthegoodman1/icecatalog/tasks"
)

type (
	CreateTableReqBody struct {
		// Dotted identifier, e.g. `db.events`
		Identifier string                `json:"identifier" validate:"required"`
		Schema     catalog.Schema        `json:"schema" validate:"required"`
		Spec       catalog.PartitionSpec `json:"spec"`
		SortOrder  catalog.SortOrder     `json:"sortOrder"`
		Location   string                `json:"location"`
		Properties map[string]string     `json:"properties"`
	}

	ReplaceTableReqBody struct {
		Schema     catalog.Schema        `json:"schema" validate:"required"`
		Spec       catalog.PartitionSpec `json:"spec"`
		SortOrder  catalog.SortOrder     `json:"sortOrder"`
		Location   string                `json:"location"`
		Properties map[string]string     `json:"properties"`
		OrCreate   bool                  `json:"orCreate"`
	}

	TableRes struct {
		Identifier string                 `json:"identifier"`
		FullName   string                 `json:"fullName"`
		ViewType   string                 `json:"viewType,omitempty"`
		Metadata   *catalog.TableMetadata `json:"metadata"`
	}
)

func tableRes(t *catalog.Table) TableRes {
	return TableRes{
		Identifier: t.Identifier.String(),
		FullName:   t.FullName,
		ViewType:   string(t.ViewType),
		Metadata:   t.Metadata,
	}
}

// catalogError maps the catalog error taxonomy onto HTTP statuses, anything
// unclassified is an internal error.
func (c *CustomContext) catalogError(err error, msg string) error {
	switch {
	case catalog.IsNoSuchTable(err):
		return c.String(http.StatusNotFound, err.Error())
	case catalog.IsAlreadyExists(err):
		return c.String(http.StatusConflict, err.Error())
	case catalog.IsInvalidIdentifier(err):
		return c.String(http.StatusBadRequest, err.Error())
	default:
		return c.InternalError(err, msg)
	}
}

func pathIdentifier(c *CustomContext) catalog.TableIdentifier {
	levels := strings.Split(c.Param("namespace"), ".")
	return catalog.NewTableIdentifier(append(levels, c.Param("table"))...)
}

func (s *HTTPServer) CreateTableHandler(c *CustomContext) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second*30)
	defer cancel()

	var reqBody CreateTableReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	identifier := catalog.ParseTableIdentifier(reqBody.Identifier)
	table, err := s.Catalog.CreateTable(ctx, identifier, reqBody.Schema, reqBody.Spec, reqBody.SortOrder, reqBody.Location, reqBody.Properties)
	if err != nil {
		return c.catalogError(err, "error creating table")
	}

	return c.JSON(http.StatusCreated, tableRes(table))
}

func (s *HTTPServer) LoadTableHandler(c *CustomContext) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second*30)
	defer cancel()

	table, err := s.Catalog.LoadTable(ctx, pathIdentifier(c))
	if err != nil {
		return c.catalogError(err, "error loading table")
	}

	return c.JSON(http.StatusOK, tableRes(table))
}

func (s *HTTPServer) ReplaceTableHandler(c *CustomContext) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second*30)
	defer cancel()

	var reqBody ReplaceTableReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	tx, err := s.Catalog.NewReplaceTableTransaction(ctx, pathIdentifier(c), reqBody.Schema, reqBody.Spec, reqBody.SortOrder, reqBody.Location, reqBody.Properties, reqBody.OrCreate)
	if err != nil {
		return c.catalogError(err, "error preparing replace")
	}

	table, err := tx.Commit(ctx)
	if err != nil {
		return c.catalogError(err, "error committing replace")
	}

	return c.JSON(http.StatusOK, tableRes(table))
}

func (s *HTTPServer) DropTableHandler(c *CustomContext) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), time.Minute*10)
	defer cancel()

	purge := c.QueryParam("purge") == "1" || strings.EqualFold(c.QueryParam("purge"), "true")

	if err := s.Catalog.DropTable(ctx, pathIdentifier(c), purge); err != nil {
		return c.catalogError(err, "error dropping table")
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) ListTablesHandler(c *CustomContext) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second*30)
	defer cancel()

	namespace := strings.Split(c.Param("namespace"), ".")
	identifiers, err := s.Catalog.ListTables(ctx, namespace)
	if err != nil {
		return c.InternalError(err, "error listing tables")
	}

	// load metadata for each table concurrently, fail the request on the
	// first error
	results := make([]TableRes, len(identifiers))
	type indexed struct {
		i     int
		ident catalog.TableIdentifier
	}
	items := make([]indexed, len(identifiers))
	for i, ident := range identifiers {
		items[i] = indexed{i: i, ident: ident}
	}
	err = tasks.All(ctx, items, 8, func(ctx context.Context, item indexed) error {
		table, err := s.Catalog.LoadTable(ctx, item.ident)
		if err != nil {
			return err
		}
		results[item.i] = tableRes(table)
		return nil
	})
	if err != nil {
		return c.catalogError(err, "error loading tables")
	}

	return c.JSON(http.StatusOK, results)
}
