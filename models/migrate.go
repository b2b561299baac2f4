package models

// All returns every model managed by schema migration, parents first
func All() []any {
	return []any{
		&Tag{},
		&Item{},
		&List{},
		&Process{},
		&Table{},
		&Category{},
		&Container{},
		&ElementTag{},
		&Relation{},
		&Component{},
		&RelationTag{},
		&ComponentTag{},
		&CategoryTag{},
		&CategoryTagLink{},
	}
}
