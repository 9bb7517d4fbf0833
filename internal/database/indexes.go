package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureUserIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("users").Indexes()

	models := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("email_unique").
				SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "microsoftId", Value: 1}},
			Options: options.Index().
				SetName("microsoftId_unique").
				SetUnique(true).
				SetSparse(true),
		},
	}

	log.Println("EnsureUserIndexes: creating user indexes")
	_, err := indexes.CreateMany(ctx, models)
	if err != nil {
		log.Println("EnsureUserIndexes: index error:", err)
		return err
	}
	return nil
}

func EnsureCustomerIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("customers").Indexes()

	models := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "name", Value: 1}},
			Options: options.Index().
				SetName("name_unique").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "province", Value: 1}},
			Options: options.Index().SetName("province_index"),
		},
	}

	log.Println("EnsureCustomerIndexes: creating customer indexes")
	_, err := indexes.CreateMany(ctx, models)
	if err != nil {
		log.Println("EnsureCustomerIndexes: index error:", err)
		return err
	}
	return nil
}

func EnsureVisitIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("visits").Indexes()

	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "visitAt", Value: -1}}, Options: options.Index().SetName("visitAt_desc")},
		{Keys: bson.D{{Key: "salesUser", Value: 1}}, Options: options.Index().SetName("salesUser_index")},
		{Keys: bson.D{{Key: "customer", Value: 1}}, Options: options.Index().SetName("customer_index")},
		{Keys: bson.D{{Key: "brand", Value: 1}}, Options: options.Index().SetName("brand_index")},
		{Keys: bson.D{{Key: "status", Value: 1}}, Options: options.Index().SetName("status_index")},
		{Keys: bson.D{{Key: "createdBy", Value: 1}}, Options: options.Index().SetName("createdBy_index")},
	}

	log.Println("EnsureVisitIndexes: creating visit indexes")
	_, err := indexes.CreateMany(ctx, models)
	if err != nil {
		log.Println("EnsureVisitIndexes: index error:", err)
		return err
	}
	return nil
}
