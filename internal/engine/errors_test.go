package engine

import (
	"errors"
	"testing"

	"autocrud/internal/metadata"
)

func TestEntityLookupError_SplitsNotFoundFromLoadFailure(t *testing.T) {
	reg := metadata.NewRegistry()
	_, err := reg.Get("fantasma")
	appErr := entityLookupError("fantasma", err)
	if appErr.Code != "UNKNOWN_ENTITY" || appErr.Status != 404 {
		t.Fatalf("unknown name should be a 404, got %+v", appErr)
	}

	reg.SetLoader(func() ([]*metadata.Entity, error) {
		return nil, errors.New("metadata dir unreadable")
	}, true)
	_, err = reg.Get("pais")
	appErr = entityLookupError("pais", err)
	if appErr.Code != "METADATA_LOAD_FAILED" || appErr.Status != 500 {
		t.Fatalf("a failing metadata source should be a 500, got %+v", appErr)
	}
}
