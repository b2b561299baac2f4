package businessflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/amirphl/widget-sidebar/app/services"
	businessflow "github.com/amirphl/widget-sidebar/business_flow"
	"github.com/amirphl/widget-sidebar/logger"
	"github.com/amirphl/widget-sidebar/models"
	"github.com/amirphl/widget-sidebar/repository"
	testingutil "github.com/amirphl/widget-sidebar/testing"
	"github.com/stretchr/testify/require"
)

// flows wires every flow over one test database the way main does
type flows struct {
	db       *testingutil.TestDB
	fx       *testingutil.TestFixtures
	notifier *services.MemoryNotifier
	events   *eventRecorder

	relationRepo  repository.RelationRepository
	componentRepo repository.ComponentRepository
	contentRepo   repository.ContentRepository
	assocRepo     repository.TagAssociationRepository

	assembler   businessflow.ContentAssembler
	tagFilter   businessflow.TagFilter
	engine      businessflow.ReorderEngine
	resolver    businessflow.MetadataResolver
	areaTags    businessflow.TagManager
	projectTags businessflow.TagManager
	containers  businessflow.ContainerManager
	filter      businessflow.FilterEngine
	exports     businessflow.ExportFlow
	categories  businessflow.CategoryTagFlow
}

func newFlows(t *testing.T, testDB *testingutil.TestDB) *flows {
	return newFlowsWithContent(t, testDB, nil)
}

// newFlowsWithContent lets a test replace the content repository used by the
// reordering engine
func newFlowsWithContent(t *testing.T, testDB *testingutil.TestDB, content repository.ContentRepository) *flows {
	t.Helper()
	log := logger.NewNop()
	db := testDB.DB

	f := &flows{
		db:            testDB,
		fx:            testingutil.NewTestFixtures(testDB),
		notifier:      services.NewMemoryNotifier(),
		events:        &eventRecorder{},
		relationRepo:  repository.NewRelationRepository(db),
		componentRepo: repository.NewComponentRepository(db),
		contentRepo:   repository.NewContentRepository(db),
		assocRepo:     repository.NewTagAssociationRepository(db),
	}
	if content != nil {
		f.contentRepo = content
	}
	unsubscribe := f.notifier.Subscribe(f.events.record)
	t.Cleanup(unsubscribe)

	tagRepo := repository.NewElementTagRepository(db)
	f.assembler = businessflow.NewContentAssembler(f.relationRepo, f.componentRepo, f.assocRepo, log)
	f.tagFilter = businessflow.NewTagFilter(f.assocRepo, log)
	f.engine = businessflow.NewReorderEngine(f.contentRepo, f.relationRepo, f.componentRepo, f.assembler, f.notifier, log)
	f.resolver = businessflow.NewMetadataResolver(repository.NewEntityRepository(db), log)
	f.areaTags = businessflow.NewTagManager(models.ContainerKindArea, tagRepo, f.assocRepo, f.assembler,
		services.NewMemoryCache[models.ElementTag]("tags:area"), f.notifier, log)
	f.projectTags = businessflow.NewTagManager(models.ContainerKindProject, tagRepo, f.assocRepo, f.assembler,
		services.NewMemoryCache[models.ElementTag]("tags:project"), f.notifier, log)
	f.containers = businessflow.NewContainerManager(repository.NewContainerRepository(db), f.relationRepo, f.componentRepo,
		f.assocRepo, f.assembler, f.tagFilter, f.engine, services.NewMemoryCache[models.Container]("containers"),
		f.notifier, db, log)
	f.filter = businessflow.NewFilterEngine(f.containers, f.relationRepo, f.notifier, log)
	t.Cleanup(f.filter.Close)
	f.exports = businessflow.NewExportFlow(f.containers, f.assembler, f.resolver,
		[]businessflow.TagManager{f.areaTags, f.projectTags}, log)
	f.categories = businessflow.NewCategoryTagFlow(repository.NewCategoryTagRepository(db), f.notifier, log)
	return f
}

// withDB runs fn against a fresh database
func withDB(t *testing.T, fn func(f *flows)) {
	t.Helper()
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fn(newFlows(t, testDB))
		return nil
	})
	require.NoError(t, err)
}

// refs lists the entry refs of an assembled container in order
func refs(entries []models.ContentEntry) []models.EntryRef {
	out := make([]models.EntryRef, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Ref())
	}
	return out
}

func relRef(r *models.Relation) models.EntryRef {
	return models.EntryRef{Kind: models.EntryKindRelation, ID: r.ID}
}

func compRef(c *models.Component) models.EntryRef {
	return models.EntryRef{Kind: models.EntryKindComponent, ID: c.ID}
}

// seedRelations creates one item relation per order index
func seedRelations(t *testing.T, f *flows, containerID uint, orders ...int) []*models.Relation {
	t.Helper()
	out := make([]*models.Relation, 0, len(orders))
	for i, o := range orders {
		r, err := f.fx.CreateTestRelation(containerID, models.EntityTypeItem, uint(i+1), o)
		require.NoError(t, err)
		out = append(out, r)
	}
	return out
}

type eventRecorder struct {
	mu     sync.Mutex
	events []services.ChangeEvent
}

func (r *eventRecorder) record(ev services.ChangeEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *eventRecorder) actions(entity string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if ev.Entity == entity {
			out = append(out, ev.Action)
		}
	}
	return out
}

var errInjected = errors.New("injected write failure")

// faultyContent fails order writes after a number of successful ones
type faultyContent struct {
	repository.ContentRepository
	mu        sync.Mutex
	allowed   int
	failAfter bool
}

func (c *faultyContent) arm(allowed int) {
	c.mu.Lock()
	c.allowed = allowed
	c.failAfter = true
	c.mu.Unlock()
}

func (c *faultyContent) disarm() {
	c.mu.Lock()
	c.failAfter = false
	c.mu.Unlock()
}

func (c *faultyContent) next() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.failAfter {
		return nil
	}
	if c.allowed == 0 {
		return errInjected
	}
	c.allowed--
	return nil
}

func (c *faultyContent) UpdateRelationOrder(ctx context.Context, id uint, orderIndex int) error {
	if err := c.next(); err != nil {
		return err
	}
	return c.ContentRepository.UpdateRelationOrder(ctx, id, orderIndex)
}

func (c *faultyContent) UpdateComponentOrder(ctx context.Context, id uint, orderIndex int) error {
	if err := c.next(); err != nil {
		return err
	}
	return c.ContentRepository.UpdateComponentOrder(ctx, id, orderIndex)
}
