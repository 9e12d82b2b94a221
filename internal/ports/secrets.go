package ports

import "context"

// StaticVarSource supplies operator static variables from an external store.
type StaticVarSource interface {
	StaticVars(ctx context.Context, id string) (map[string]string, error)
}
