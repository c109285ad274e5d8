package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Value is a typed document field. Exactly one member is set.
type Value struct {
	StringValue    *string `json:"stringValue,omitempty"`
	BooleanValue   *bool   `json:"booleanValue,omitempty"`
	IntegerValue   *string `json:"integerValue,omitempty"`
	TimestampValue *string `json:"timestampValue,omitempty"`
	NullValue      *string `json:"nullValue,omitempty"`
}

// String builds a string value.
func String(s string) Value { return Value{StringValue: &s} }

// Bool builds a boolean value.
func Bool(b bool) Value { return Value{BooleanValue: &b} }

// Int builds an integer value.
func Int(n int64) Value {
	s := strconv.FormatInt(n, 10)
	return Value{IntegerValue: &s}
}

// Timestamp builds a timestamp value.
func Timestamp(t time.Time) Value {
	s := t.UTC().Format(time.RFC3339Nano)
	return Value{TimestampValue: &s}
}

// AsString returns the string member, or "".
func (v Value) AsString() string {
	if v.StringValue == nil {
		return ""
	}
	return *v.StringValue
}

// AsBool returns the boolean member, or false.
func (v Value) AsBool() bool {
	return v.BooleanValue != nil && *v.BooleanValue
}

// AsTime returns the timestamp member, or the zero time.
func (v Value) AsTime() time.Time {
	if v.TimestampValue == nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, *v.TimestampValue)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Document is a stored document.
type Document struct {
	Name       string           `json:"name,omitempty"`
	Fields     map[string]Value `json:"fields,omitempty"`
	CreateTime string           `json:"createTime,omitempty"`
	UpdateTime string           `json:"updateTime,omitempty"`
}

// ID returns the last segment of the document name.
func (d Document) ID() string {
	i := strings.LastIndex(d.Name, "/")
	return d.Name[i+1:]
}

// DocumentMask names the fields a write touches.
type DocumentMask struct {
	FieldPaths []string `json:"fieldPaths"`
}

// FieldTransform sets a field on the server.
type FieldTransform struct {
	FieldPath string `json:"fieldPath"`
	// SetToServerValue is "REQUEST_TIME" for a commit timestamp.
	SetToServerValue string `json:"setToServerValue,omitempty"`
}

// ServerTimestamp sets field to the commit time.
func ServerTimestamp(field string) FieldTransform {
	return FieldTransform{FieldPath: field, SetToServerValue: "REQUEST_TIME"}
}

// Precondition must hold for a write to apply.
type Precondition struct {
	Exists     *bool  `json:"exists,omitempty"`
	UpdateTime string `json:"updateTime,omitempty"`
}

// MustNotExist is a create-only precondition.
func MustNotExist() *Precondition {
	f := false
	return &Precondition{Exists: &f}
}

// UpdatedAt applies the write only if the document was last written at t.
func UpdatedAt(t string) *Precondition {
	return &Precondition{UpdateTime: t}
}

// Write is one operation of a commit.
type Write struct {
	Update           *Document        `json:"update,omitempty"`
	UpdateMask       *DocumentMask    `json:"updateMask,omitempty"`
	UpdateTransforms []FieldTransform `json:"updateTransforms,omitempty"`
	CurrentDocument  *Precondition    `json:"currentDocument,omitempty"`
}

// WriteResult is the outcome of one write.
type WriteResult struct {
	UpdateTime       string  `json:"updateTime"`
	TransformResults []Value `json:"transformResults,omitempty"`
}

// CommitResponse is the outcome of a commit.
type CommitResponse struct {
	WriteResults []WriteResult `json:"writeResults"`
	CommitTime   string        `json:"commitTime"`
}

// FieldReference names a field in a query.
type FieldReference struct {
	FieldPath string `json:"fieldPath"`
}

// Order sorts query results.
type Order struct {
	Field     FieldReference `json:"field"`
	Direction string         `json:"direction"`
}

// Sort directions.
const (
	Ascending  = "ASCENDING"
	Descending = "DESCENDING"
)

// CollectionSelector names the queried collection.
type CollectionSelector struct {
	CollectionID string `json:"collectionId"`
}

// StructuredQuery is a collection query.
type StructuredQuery struct {
	From    []CollectionSelector `json:"from"`
	OrderBy []Order              `json:"orderBy,omitempty"`
	Limit   int                  `json:"limit,omitempty"`
}

// Query builds a query over collection ordered by field.
func Query(collection, field, direction string, limit int) StructuredQuery {
	return StructuredQuery{
		From:    []CollectionSelector{{CollectionID: collection}},
		OrderBy: []Order{{Field: FieldReference{FieldPath: field}, Direction: direction}},
		Limit:   limit,
	}
}

// DocumentName returns the full resource name of a document path such as
// "channels/abc".
func (c *Client) DocumentName(path string) string {
	return "projects/" + c.projectID + "/databases/(default)/documents/" + strings.Trim(path, "/")
}

func (c *Client) documentURL(path string) string {
	return c.dbURL + "/" + c.DocumentName(path)
}

// GetDocument reads the document at path.
func (c *Client) GetDocument(ctx context.Context, path string) (*Document, error) {
	var doc Document
	r := request{method: http.MethodGet, url: c.documentURL(path), bearer: true}
	if err := c.doRequest(ctx, r, &doc); err != nil {
		return nil, fmt.Errorf("client.GetDocument: %w", err)
	}
	return &doc, nil
}

// Commit applies writes atomically.
func (c *Client) Commit(ctx context.Context, writes ...Write) (*CommitResponse, error) {
	var resp CommitResponse
	r := request{
		method: http.MethodPost,
		url:    c.dbURL + "/projects/" + c.projectID + "/databases/(default)/documents:commit",
		json:   map[string]any{"writes": writes},
		bearer: true,
	}
	if err := c.doRequest(ctx, r, &resp); err != nil {
		return nil, fmt.Errorf("client.Commit: %w", err)
	}
	return &resp, nil
}

// RunQuery runs q over the children of parent, a document path or "" for the
// root. Results come back in query order.
func (c *Client) RunQuery(ctx context.Context, parent string, q StructuredQuery) ([]Document, error) {
	base := c.dbURL + "/projects/" + c.projectID + "/databases/(default)/documents"
	if p := strings.Trim(parent, "/"); p != "" {
		base += "/" + p
	}
	var rows []struct {
		Document *Document `json:"document,omitempty"`
		ReadTime string    `json:"readTime,omitempty"`
	}
	r := request{
		method: http.MethodPost,
		url:    base + ":runQuery",
		json:   map[string]any{"structuredQuery": q},
		bearer: true,
	}
	if err := c.doRequest(ctx, r, &rows); err != nil {
		return nil, fmt.Errorf("client.RunQuery: %w", err)
	}
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		if row.Document != nil {
			docs = append(docs, *row.Document)
		}
	}
	return docs, nil
}
