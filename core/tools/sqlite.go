package tools

import (
	"context"
	"fmt"

	"github.com/decisive-systems/conductor/core/store"
	"github.com/decisive-systems/conductor/core/typeutil"
)

// RegisterStoreTools installs the SQLite-backed reference tools. Each is
// idempotent by natural key: re-running a step that already applied its
// side effect converges on the same state.
func RegisterStoreTools(reg *Registry, st *store.Store) error {
	specs := []struct {
		def     Definition
		handler Handler
	}{
		{
			Definition{
				Name:        "register_view",
				Description: "Create or replace a named SQL view",
				Risk:        RiskWrite,
			},
			registerViewHandler(st),
		},
		{
			Definition{
				Name:        "upsert_record",
				Description: "Insert or update one record by namespace and key",
				Risk:        RiskWrite,
			},
			upsertRecordHandler(st),
		},
		{
			Definition{
				Name:        "execute_sql",
				Description: "Execute one SQL statement and report affected rows",
				Risk:        RiskDestructive,
			},
			executeSQLHandler(st),
		},
	}
	for _, s := range specs {
		if err := reg.Register(s.def, s.handler); err != nil {
			return err
		}
	}
	return nil
}

func registerViewHandler(st *store.Store) Handler {
	return func(ctx context.Context, params map[string]any) (map[string]any, error) {
		name := typeutil.SafeString(params, "view_name")
		query := typeutil.SafeString(params, "query")
		if name == "" || query == "" {
			return nil, fmt.Errorf("register_view requires view_name and query")
		}
		if err := st.RegisterView(ctx, name, query); err != nil {
			return nil, err
		}
		return map[string]any{"view_name": name}, nil
	}
}

func upsertRecordHandler(st *store.Store) Handler {
	return func(ctx context.Context, params map[string]any) (map[string]any, error) {
		namespace := typeutil.SafeString(params, "namespace")
		key := typeutil.SafeString(params, "key")
		body := typeutil.SafeMapStringAny(params, "body")
		if namespace == "" || key == "" {
			return nil, fmt.Errorf("upsert_record requires namespace and key")
		}
		if body == nil {
			return nil, fmt.Errorf("upsert_record requires an object body")
		}
		if err := st.UpsertRecord(ctx, namespace, key, body); err != nil {
			return nil, err
		}
		return map[string]any{"namespace": namespace, "key": key}, nil
	}
}

func executeSQLHandler(st *store.Store) Handler {
	return func(ctx context.Context, params map[string]any) (map[string]any, error) {
		statement := typeutil.SafeString(params, "statement")
		if statement == "" {
			return nil, fmt.Errorf("execute_sql requires a statement")
		}
		affected, err := st.ExecSQL(ctx, statement)
		if err != nil {
			return nil, err
		}
		return map[string]any{"rows_affected": affected}, nil
	}
}
