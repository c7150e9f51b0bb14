package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("disk on fire")
	err := Wrap(CodeDependency, cause, "persist event")

	assert.Equal(t, CodeDependency, err.Code())
	assert.True(t, stdErrors.Is(err, cause))
	assert.Equal(t, "DEPENDENCY_ERROR: persist event", err.Error())
}

func TestAsFindsTypedErrorInChain(t *testing.T) {
	inner := New(CodeNotFound, "entity missing")
	wrapped := fmt.Errorf("handling webhook: %w", inner)

	typed := As(wrapped)
	require.NotNil(t, typed)
	assert.Equal(t, CodeNotFound, typed.Code())

	assert.Nil(t, As(stdErrors.New("untyped")))
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)

	assert.Equal(t, http.StatusUnauthorized, MetadataFor(CodeUnauthorized).HTTPStatus)
	assert.Equal(t, http.StatusUnprocessableEntity, MetadataFor(CodeStateConflict).HTTPStatus)
}

func TestDumpExtractsPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "idx_documentation_events_content_hash",
		TableName:      "documentation_events",
	}
	dump := Dump(fmt.Errorf("insert: %w", pgErr))

	assert.Equal(t, "23505", dump.PGCode)
	assert.Equal(t, "idx_documentation_events_content_hash", dump.PGConstraint)
	assert.Equal(t, "documentation_events", dump.PGTable)
	assert.NotEmpty(t, dump.Chain)
}
