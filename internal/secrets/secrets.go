// Package secrets resolves opaque secret references into raw credential
// bundles. Storage mechanics stay behind the Provider interface; the worker
// only ever sees a reference string and the resolved bytes.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

type Provider interface {
	Resolve(ctx context.Context, ref string) ([]byte, error)
}

// Resolver dispatches on the reference scheme: env://NAME reads an
// environment variable, file:///path reads a mounted secret file.
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

func (r *Resolver) Resolve(_ context.Context, ref string) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, "env://"):
		name := strings.TrimPrefix(ref, "env://")
		v := os.Getenv(name)
		if v == "" {
			return nil, fmt.Errorf("secret %s is empty", ref)
		}
		return []byte(v), nil
	case strings.HasPrefix(ref, "file://"):
		path := strings.TrimPrefix(ref, "file://")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("secret %s: %w", ref, err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("secret %s is empty", ref)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported secret reference %q", ref)
	}
}

var _ Provider = (*Resolver)(nil)
