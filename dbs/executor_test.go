package dbs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredb-io/kernel/catalog"
	"github.com/coredb-io/kernel/dbs"
	"github.com/coredb-io/kernel/errs"
	"github.com/coredb-io/kernel/kv"
	"github.com/coredb-io/kernel/kv/memkv"
	"github.com/coredb-io/kernel/reqctx"
	"github.com/coredb-io/kernel/txstore"
	"github.com/coredb-io/kernel/val"
)

type harness struct {
	store *txstore.Store
	rc    *reqctx.Context
	ns    catalog.Namespace
	db    catalog.Database
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	db, err := memkv.New().BeginTx(ctx, kv.Write, kv.Optimistic)
	require.NoError(t, err)

	rc := reqctx.New(reqctx.Options{Tx: db, Notify: reqctx.NewNotifySink(16)})
	store, err := txstore.New(db, rc, txstore.Options{})
	require.NoError(t, err)

	ns, err := catalog.CreateNamespace(ctx, store, "h-ns")
	require.NoError(t, err)
	database, err := catalog.CreateDatabase(ctx, store, ns.ID, "h-db")
	require.NoError(t, err)

	require.NoError(t, rc.Set("ns", val.Int(int64(ns.ID))))
	require.NoError(t, rc.Set("db", val.Int(int64(database.ID))))

	return &harness{store: store, rc: rc, ns: ns, db: database}
}

func TestCreateThenSelectTableRoundTrips(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := catalog.CreateTable(ctx, h.store, h.ns.ID, h.db.ID, "people", false)
	require.NoError(t, err)

	exec := dbs.NewExecutor(h.store, h.rc, nil)
	create := &dbs.Statement{
		Op: dbs.OpCreate,
		Targets: []dbs.Target{{
			Kind:        dbs.TargetInsert,
			Table:       "people",
			InsertValue: val.Obj(map[string]val.Value{"name": val.String("ada")}),
		}},
	}
	rows, notifications, err := exec.Run(ctx, create, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, notifications, 0) // no live subscriptions yet

	id, ok := rows[0].ID()
	require.True(t, ok)
	require.Equal(t, "people", id.Table)

	selectExec := dbs.NewExecutor(h.store, h.rc, nil)
	sel := &dbs.Statement{
		Op:      dbs.OpSelect,
		Targets: []dbs.Target{{Kind: dbs.TargetTable, Table: "people"}},
	}
	got, _, err := selectExec.Run(ctx, sel, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "ada", got[0].Object["name"].Str)
}

func TestDeleteRemovesRowFromSubsequentScan(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := catalog.CreateTable(ctx, h.store, h.ns.ID, h.db.ID, "widgets", false)
	require.NoError(t, err)

	create := &dbs.Statement{
		Op:      dbs.OpCreate,
		Targets: []dbs.Target{{Kind: dbs.TargetInsert, Table: "widgets", InsertValue: val.Obj(map[string]val.Value{"n": val.Int(1)})}},
	}
	rows, _, err := dbs.NewExecutor(h.store, h.rc, nil).Run(ctx, create, nil)
	require.NoError(t, err)
	id, _ := rows[0].ID()

	del := &dbs.Statement{
		Op:      dbs.OpDelete,
		Targets: []dbs.Target{{Kind: dbs.TargetRecordId, Table: "widgets", RecordId: id}},
	}
	_, _, err = dbs.NewExecutor(h.store, h.rc, nil).Run(ctx, del, nil)
	require.NoError(t, err)

	sel := &dbs.Statement{Op: dbs.OpSelect, Targets: []dbs.Target{{Kind: dbs.TargetTable, Table: "widgets"}}}
	got, _, err := dbs.NewExecutor(h.store, h.rc, nil).Run(ctx, sel, nil)
	require.NoError(t, err)
	require.Len(t, got, 0)
}

func TestSchemafullTableRejectsWrongKind(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tbl, err := catalog.CreateTable(ctx, h.store, h.ns.ID, h.db.ID, "accounts", true)
	require.NoError(t, err)
	_, err = catalog.CreateField(ctx, h.store, h.ns.ID, h.db.ID, tbl.ID, catalog.Field{Name: "balance", Kind: val.KindNumber})
	require.NoError(t, err)

	create := &dbs.Statement{
		Op: dbs.OpCreate,
		Targets: []dbs.Target{{
			Kind:        dbs.TargetInsert,
			Table:       "accounts",
			InsertValue: val.Obj(map[string]val.Value{"balance": val.String("not-a-number")}),
		}},
	}
	_, _, err = dbs.NewExecutor(h.store, h.rc, nil).Run(ctx, create, nil)
	require.Error(t, err)
	kind, ok := errs.Of(err)
	require.True(t, ok)
	require.Equal(t, errs.TypeError, kind)
}

func TestOrderByLimitUsesBoundedCollector(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := catalog.CreateTable(ctx, h.store, h.ns.ID, h.db.ID, "scores", false)
	require.NoError(t, err)

	exec := dbs.NewExecutor(h.store, h.rc, nil)
	for _, n := range []int64{5, 1, 4, 2, 3} {
		create := &dbs.Statement{
			Op:      dbs.OpCreate,
			Targets: []dbs.Target{{Kind: dbs.TargetInsert, Table: "scores", InsertValue: val.Obj(map[string]val.Value{"n": val.Int(n)})}},
		}
		_, _, err := exec.Run(ctx, create, nil)
		require.NoError(t, err)
	}

	sel := &dbs.Statement{
		Op:       dbs.OpSelect,
		Targets:  []dbs.Target{{Kind: dbs.TargetTable, Table: "scores"}},
		Order:    []dbs.OrderField{{Field: "n", Desc: true}},
		HasLimit: true,
		Limit:    2,
	}
	got, _, err := dbs.NewExecutor(h.store, h.rc, nil).Run(ctx, sel, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.True(t, val.Equal(val.Int(5), got[0].Object["n"]))
	require.True(t, val.Equal(val.Int(4), got[1].Object["n"]))
}

func TestMustReturnOneSynthesizesGeneratedRecordWhenEmpty(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := catalog.CreateTable(ctx, h.store, h.ns.ID, h.db.ID, "empty", false)
	require.NoError(t, err)

	sel := &dbs.Statement{
		Op:            dbs.OpSelect,
		Targets:       []dbs.Target{{Kind: dbs.TargetTable, Table: "empty"}},
		MustReturnOne: true,
	}
	got, _, err := dbs.NewExecutor(h.store, h.rc, nil).Run(ctx, sel, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestNotificationStagedForLiveQueryOnCreate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tbl, err := catalog.CreateTable(ctx, h.store, h.ns.ID, h.db.ID, "events", false)
	require.NoError(t, err)
	_, err = catalog.CreateLiveQuery(ctx, h.store, h.ns.ID, h.db.ID, tbl.ID, "sub-1", "sess-a")
	require.NoError(t, err)

	create := &dbs.Statement{
		Op:      dbs.OpCreate,
		Targets: []dbs.Target{{Kind: dbs.TargetInsert, Table: "events", InsertValue: val.Obj(map[string]val.Value{"kind": val.String("click")})}},
	}
	_, notifications, err := dbs.NewExecutor(h.store, h.rc, nil).Run(ctx, create, nil)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.Equal(t, "sub-1", notifications[0].SubscriptionID)
	require.Equal(t, reqctx.Create, notifications[0].Action)
}

func TestExplainRecordsPushDownAndIterateSteps(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := catalog.CreateTable(ctx, h.store, h.ns.ID, h.db.ID, "plain", false)
	require.NoError(t, err)

	sel := &dbs.Statement{Op: dbs.OpSelect, Targets: []dbs.Target{{Kind: dbs.TargetTable, Table: "plain"}}}
	explain := &dbs.Explanation{}
	_, _, err = dbs.NewExecutor(h.store, h.rc, nil).Run(ctx, sel, explain)
	require.NoError(t, err)
	require.NotEmpty(t, explain.Steps)
	require.Equal(t, "pushdown", explain.Steps[0].Operation)
}
