// Package bootstrap wires repositories, caches and business flows into one
// application graph shared by the HTTP server and the CLI commands
package bootstrap

import (
	"github.com/amirphl/widget-sidebar/app/handlers"
	"github.com/amirphl/widget-sidebar/app/router"
	"github.com/amirphl/widget-sidebar/app/services"
	businessflow "github.com/amirphl/widget-sidebar/business_flow"
	"github.com/amirphl/widget-sidebar/logger"
	"github.com/amirphl/widget-sidebar/models"
	"github.com/amirphl/widget-sidebar/repository"
	"github.com/amirphl/widget-sidebar/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Flows holds every business flow of the service
type Flows struct {
	Notifier    services.ChangeNotifier
	Engine      businessflow.ReorderEngine
	Resolver    businessflow.MetadataResolver
	AreaTags    businessflow.TagManager
	ProjectTags businessflow.TagManager
	Containers  businessflow.ContainerManager
	Filter      businessflow.FilterEngine
	Exports     businessflow.ExportFlow
	Categories  businessflow.CategoryTagFlow
}

// NewFlows builds the flows over db. Caches and change events go through
// redis when rc is set and stay in process otherwise.
func NewFlows(db *gorm.DB, rc *redis.Client, prefix string, log *logger.Logger) *Flows {
	relationRepo := repository.NewRelationRepository(db)
	componentRepo := repository.NewComponentRepository(db)
	assocRepo := repository.NewTagAssociationRepository(db)
	tagRepo := repository.NewElementTagRepository(db)

	notifier := services.NewChangeNotifier(rc, prefix, log)
	assembler := businessflow.NewContentAssembler(relationRepo, componentRepo, assocRepo, log)
	tagFilter := businessflow.NewTagFilter(assocRepo, log)
	engine := businessflow.NewReorderEngine(repository.NewContentRepository(db), relationRepo, componentRepo, assembler, notifier, log)
	resolver := businessflow.NewMetadataResolver(repository.NewEntityRepository(db), log)

	tagManager := func(kind models.ContainerKind) businessflow.TagManager {
		cache := services.NewCache[models.ElementTag](rc, prefix, services.CacheName(utils.TagCacheKeyPrefix, kind.String()), log)
		return businessflow.NewTagManager(kind, tagRepo, assocRepo, assembler, cache, notifier, log)
	}
	areaTags := tagManager(models.ContainerKindArea)
	projectTags := tagManager(models.ContainerKindProject)

	containers := businessflow.NewContainerManager(
		repository.NewContainerRepository(db),
		relationRepo,
		componentRepo,
		assocRepo,
		assembler,
		tagFilter,
		engine,
		services.NewCache[models.Container](rc, prefix, utils.ContainerCacheKeyPrefix, log),
		notifier,
		db,
		log,
	)

	return &Flows{
		Notifier:    notifier,
		Engine:      engine,
		Resolver:    resolver,
		AreaTags:    areaTags,
		ProjectTags: projectTags,
		Containers:  containers,
		Filter:      businessflow.NewFilterEngine(containers, relationRepo, notifier, log),
		Exports:     businessflow.NewExportFlow(containers, assembler, resolver, []businessflow.TagManager{areaTags, projectTags}, log),
		Categories:  businessflow.NewCategoryTagFlow(repository.NewCategoryTagRepository(db), notifier, log),
	}
}

// Handlers builds the HTTP handlers over the flows
func (f *Flows) Handlers(defaultExportFormat string) router.Handlers {
	return router.Handlers{
		Containers:   handlers.NewContainerHandler(f.Containers, f.Engine),
		Content:      handlers.NewContentHandler(f.Containers, f.Engine, f.Resolver),
		Tags:         handlers.NewTagHandler(f.Containers, f.AreaTags, f.ProjectTags),
		CategoryTags: handlers.NewCategoryTagHandler(f.Categories),
		Filter:       handlers.NewFilterHandler(f.Filter),
		Export:       handlers.NewExportHandler(f.Exports, defaultExportFormat),
	}
}

// Close releases the subscriptions held by the flows
func (f *Flows) Close() {
	f.Filter.Close()
}
