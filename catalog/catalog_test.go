package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredb-io/kernel/catalog"
	"github.com/coredb-io/kernel/errs"
	"github.com/coredb-io/kernel/keycodec"
	"github.com/coredb-io/kernel/kv"
	"github.com/coredb-io/kernel/kv/memkv"
	"github.com/coredb-io/kernel/txstore"
	"github.com/coredb-io/kernel/val"
)

func newStore(t *testing.T) *txstore.Store {
	t.Helper()
	db := memkv.New()
	tx, err := db.BeginTx(context.Background(), kv.Write, kv.Optimistic)
	require.NoError(t, err)
	s, err := txstore.New(tx, nil, txstore.Options{})
	require.NoError(t, err)
	return s
}

func TestNamespaceDatabaseTableHierarchyRoundTrips(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	ns, err := catalog.CreateNamespace(ctx, s, "app")
	require.NoError(t, err)
	require.Equal(t, "app", ns.Name)
	require.NotZero(t, ns.ID)

	got, ok, err := catalog.GetNamespace(ctx, s, "app")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ns.ID, got.ID)

	byID, ok, err := catalog.GetNamespaceByID(ctx, s, ns.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "app", byID.Name)

	db, err := catalog.CreateDatabase(ctx, s, ns.ID, "main")
	require.NoError(t, err)
	require.Equal(t, ns.ID, db.NamespaceID)

	tbl, err := catalog.CreateTable(ctx, s, ns.ID, db.ID, "people", true)
	require.NoError(t, err)
	require.True(t, tbl.Schemafull)

	f, err := catalog.CreateField(ctx, s, ns.ID, db.ID, tbl.ID, catalog.Field{
		Name: "age",
		Kind: val.KindNumber,
	})
	require.NoError(t, err)
	require.Equal(t, tbl.ID, f.TableID)

	ix, err := catalog.CreateIndex(ctx, s, ns.ID, db.ID, tbl.ID, catalog.Index{
		Name:   "age_idx",
		Kind:   catalog.IndexStandard,
		Fields: []string{"age"},
	})
	require.NoError(t, err)
	require.Equal(t, catalog.IndexStandard, ix.Kind)

	fields, err := catalog.AllFields(ctx, s, ns.ID, db.ID, tbl.ID)
	require.NoError(t, err)
	require.Len(t, fields, 1)

	indexes, err := catalog.AllIndexes(ctx, s, ns.ID, db.ID, tbl.ID)
	require.NoError(t, err)
	require.Len(t, indexes, 1)
}

func TestCreateDuplicateNameFailsWithKeyExists(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := catalog.CreateNamespace(ctx, s, "dup")
	require.NoError(t, err)

	_, err = catalog.CreateNamespace(ctx, s, "dup")
	require.Error(t, err)
	kind, ok := errs.Of(err)
	require.True(t, ok)
	require.Equal(t, errs.KeyExists, kind)
}

func TestGetMissingNamespaceReturnsNotFoundWithoutError(t *testing.T) {
	s := newStore(t)
	_, ok, err := catalog.GetNamespace(context.Background(), s, "nope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAlterAndRemoveNamespace(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := catalog.CreateNamespace(ctx, s, "temp")
	require.NoError(t, err)

	altered, err := catalog.AlterNamespace(ctx, s, "temp", "a comment")
	require.NoError(t, err)
	require.Equal(t, "a comment", altered.Comment)

	require.NoError(t, catalog.RemoveNamespace(ctx, s, "temp"))

	_, ok, err := catalog.GetNamespace(ctx, s, "temp")
	require.NoError(t, err)
	require.False(t, ok)

	err = catalog.RemoveNamespace(ctx, s, "temp")
	require.Error(t, err)
	kind, ok := errs.Of(err)
	require.True(t, ok)
	require.Equal(t, errs.SchemaError, kind)
}

func TestGetOrAddNamespaceAutoMaterializesWhenNonStrict(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	ns, err := catalog.GetOrAddNamespace(ctx, s, "auto", false)
	require.NoError(t, err)
	require.Equal(t, "auto", ns.Name)

	_, err = catalog.GetOrAddNamespace(ctx, s, "strict-miss", true)
	require.Error(t, err)
	kind, ok := errs.Of(err)
	require.True(t, ok)
	require.Equal(t, errs.SchemaError, kind)
}

func TestFieldCoerceOrRejectEnforcesKindUnlessFlexible(t *testing.T) {
	strict := catalog.Field{Name: "age", Kind: val.KindNumber}
	_, err := strict.CoerceOrReject(val.String("nope"))
	require.Error(t, err)
	kind, ok := errs.Of(err)
	require.True(t, ok)
	require.Equal(t, errs.TypeError, kind)

	v, err := strict.CoerceOrReject(val.Int(5))
	require.NoError(t, err)
	require.True(t, val.Equal(val.Int(5), v))

	v, err = strict.CoerceOrReject(val.Null())
	require.NoError(t, err)
	require.Equal(t, val.KindNull, v.Kind)

	flexible := catalog.Field{Name: "misc", Kind: val.KindNumber, Flexible: true}
	v, err = flexible.CoerceOrReject(val.String("anything"))
	require.NoError(t, err)
	require.True(t, val.Equal(val.String("anything"), v))
}

func TestUserDefinedAtEachOfRootNamespaceDatabaseLevel(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	ns, err := catalog.CreateNamespace(ctx, s, "u-ns")
	require.NoError(t, err)
	db, err := catalog.CreateDatabase(ctx, s, ns.ID, "u-db")
	require.NoError(t, err)

	rootUser, err := catalog.CreateUser(ctx, s, keycodec.LevelRoot, nil, "root-admin", "hash0", []string{"owner"})
	require.NoError(t, err)
	require.Equal(t, keycodec.LevelRoot, rootUser.Level)

	nsUser, err := catalog.CreateUser(ctx, s, keycodec.LevelNamespace, []uint32{ns.ID}, "ns-admin", "hash1", []string{"editor"})
	require.NoError(t, err)
	require.Equal(t, keycodec.LevelNamespace, nsUser.Level)

	dbUser, err := catalog.CreateUser(ctx, s, keycodec.LevelDatabase, []uint32{ns.ID, db.ID}, "db-admin", "hash2", []string{"viewer"})
	require.NoError(t, err)
	require.Equal(t, keycodec.LevelDatabase, dbUser.Level)

	got, ok, err := catalog.GetUser(ctx, s, keycodec.LevelNamespace, []uint32{ns.ID}, "ns-admin")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{"editor"}, got.Roles)

	// A namespace-scoped user with the same name must not collide with
	// the root-scoped user of the same name: distinct (level, parentIDs).
	_, err = catalog.CreateUser(ctx, s, keycodec.LevelNamespace, []uint32{ns.ID}, "root-admin", "hash3", nil)
	require.NoError(t, err)

	all, err := catalog.AllUsers(ctx, s, keycodec.LevelRoot, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestAccessDefinedAtMultipleLevelsAndRemoved(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	ns, err := catalog.CreateNamespace(ctx, s, "acc-ns")
	require.NoError(t, err)

	_, err = catalog.CreateAccess(ctx, s, keycodec.LevelRoot, nil, "root-token", "jwt", "1h")
	require.NoError(t, err)
	_, err = catalog.CreateAccess(ctx, s, keycodec.LevelNamespace, []uint32{ns.ID}, "ns-token", "jwt", "30m")
	require.NoError(t, err)

	all, err := catalog.AllAccess(ctx, s, keycodec.LevelRoot, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "1h", all[0].Duration)

	require.NoError(t, catalog.RemoveAccess(ctx, s, keycodec.LevelNamespace, []uint32{ns.ID}, "ns-token"))
	_, ok, err := catalog.GetAccess(ctx, s, keycodec.LevelNamespace, []uint32{ns.ID}, "ns-token")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestModelAnalyzerFunctionParamLiveUnderDatabase(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	ns, err := catalog.CreateNamespace(ctx, s, "m-ns")
	require.NoError(t, err)
	db, err := catalog.CreateDatabase(ctx, s, ns.ID, "m-db")
	require.NoError(t, err)

	model, err := catalog.CreateModel(ctx, s, ns.ID, db.ID, "embedder", "v2")
	require.NoError(t, err)
	require.Equal(t, "v2", model.Version)

	an, err := catalog.CreateAnalyzer(ctx, s, ns.ID, db.ID, catalog.Analyzer{
		Name:       "english",
		Tokenizers: []string{"class"},
		Filters:    []string{"lowercase", "ascii"},
	})
	require.NoError(t, err)
	require.Len(t, an.Filters, 2)

	fn, err := catalog.CreateFunction(ctx, s, ns.ID, db.ID, "greet", []string{"name"})
	require.NoError(t, err)
	require.Equal(t, []string{"name"}, fn.Args)

	p, err := catalog.CreateParam(ctx, s, ns.ID, db.ID, "limit", val.Int(10))
	require.NoError(t, err)
	require.True(t, val.Equal(val.Int(10), p.Value))

	altered, err := catalog.AlterParam(ctx, s, ns.ID, db.ID, "limit", val.Int(20))
	require.NoError(t, err)
	require.True(t, val.Equal(val.Int(20), altered.Value))

	models, err := catalog.AllModels(ctx, s, ns.ID, db.ID)
	require.NoError(t, err)
	require.Len(t, models, 1)
}

func TestEventViewLiveQueryLiveUnderTable(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	ns, err := catalog.CreateNamespace(ctx, s, "e-ns")
	require.NoError(t, err)
	db, err := catalog.CreateDatabase(ctx, s, ns.ID, "e-db")
	require.NoError(t, err)
	tbl, err := catalog.CreateTable(ctx, s, ns.ID, db.ID, "orders", false)
	require.NoError(t, err)

	_, err = catalog.CreateEvent(ctx, s, ns.ID, db.ID, tbl.ID, "on_create", "CREATE")
	require.NoError(t, err)

	_, err = catalog.CreateView(ctx, s, ns.ID, db.ID, tbl.ID, "recent_orders", "orders")
	require.NoError(t, err)

	lq, err := catalog.CreateLiveQuery(ctx, s, ns.ID, db.ID, tbl.ID, "sub-1", "session-a")
	require.NoError(t, err)
	require.Equal(t, "session-a", lq.OwnerSession)

	events, err := catalog.AllEvents(ctx, s, ns.ID, db.ID, tbl.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)

	views, err := catalog.AllViews(ctx, s, ns.ID, db.ID, tbl.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)

	require.NoError(t, catalog.RemoveLiveQuery(ctx, s, ns.ID, db.ID, tbl.ID, "sub-1"))
	_, ok, err := catalog.GetLiveQuery(ctx, s, ns.ID, db.ID, tbl.ID, "sub-1")
	require.NoError(t, err)
	require.False(t, ok)
}
