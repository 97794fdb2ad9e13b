// Package schema describes the relations a hierarchy query walks.
//
// A relation is a table or view storing a tree as an adjacency list: every
// row references the primary key of its parent row through a foreign key on
// the same relation.
//
// # Describing a Relation
//
// Relations are described by hand:
//
//	t := schema.NewTable("category").
//	    AddColumns(
//	        &schema.Column{Name: "id", Type: "integer"},
//	        &schema.Column{Name: "parent_id", Type: "integer", Nullable: true},
//	        &schema.Column{Name: "name", Type: "text"},
//	    ).
//	    SetPrimaryKey("id").
//	    AddForeignKey("category_parent", "parent_id", "category", "id")
//
// or converted from an Atlas inspection of a live database:
//
//	t, err := schema.Inspect(ctx, db, dialect.Postgres, "category")
//
// # Self References
//
// FindSelfReference locates the primary key and the single foreign key that
// references it. A relation with no such key, or with more than one, fails
// with a *MissingForeignKeyError.
package schema
