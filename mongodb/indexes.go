package mongodb

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/asaidimu/go-griot/core/schema"
)

// compileIndexes turns a schema's per-field index specifications into store
// index-creation requests, in field declaration order.
func compileIndexes(s *schema.RecordSchema) []mongo.IndexModel {
	var models []mongo.IndexModel
	for _, f := range s.Fields() {
		spec := f.Index
		if spec == nil {
			continue
		}
		opts := options.Index()
		if spec.Unique {
			opts.SetUnique(true)
		}
		if spec.Sparse {
			opts.SetSparse(true)
		}
		if spec.Background {
			opts.SetBackground(true)
		}
		if spec.Name != "" {
			opts.SetName(spec.Name)
		}
		if spec.ExpireAfterSeconds != nil {
			opts.SetExpireAfterSeconds(*spec.ExpireAfterSeconds)
		}
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: f.Name, Value: spec.Order}},
			Options: opts,
		})
	}
	return models
}
