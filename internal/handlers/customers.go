package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"visittrack/internal/middleware"
	"visittrack/internal/models"
)

type contactRequest struct {
	Name            string `json:"name" binding:"required"`
	Phone           string `json:"phone"`
	Position        string `json:"position"`
	IsDecisionMaker bool   `json:"isDecisionMaker"`
}

type customerCreateRequest struct {
	Name                 string           `json:"name" binding:"required"`
	Province             string           `json:"province"`
	Contacts             []contactRequest `json:"contacts" binding:"omitempty,dive"`
	BusinessCard         *models.FileRef  `json:"businessCard"`
	CurrentProviderBrand string           `json:"currentProviderBrand"`
	Notes                string           `json:"notes"`
}

type customerUpdateRequest struct {
	Name                 *string           `json:"name"`
	Province             *string           `json:"province"`
	Contacts             *[]contactRequest `json:"contacts" binding:"omitempty,dive"`
	BusinessCard         *models.FileRef   `json:"businessCard"`
	CurrentProviderBrand *string           `json:"currentProviderBrand"`
	Notes                *string           `json:"notes"`
}

func contactsFromRequest(contacts []contactRequest) []models.Contact {
	out := make([]models.Contact, 0, len(contacts))
	for _, contact := range contacts {
		out = append(out, models.Contact{
			Name:            strings.TrimSpace(contact.Name),
			Phone:           strings.TrimSpace(contact.Phone),
			Position:        strings.TrimSpace(contact.Position),
			IsDecisionMaker: contact.IsDecisionMaker,
		})
	}
	return out
}

func customerFromCreateRequest(req customerCreateRequest, by primitive.ObjectID, now time.Time) models.Customer {
	return models.Customer{
		Name:                 strings.TrimSpace(req.Name),
		Province:             strings.TrimSpace(req.Province),
		Contacts:             contactsFromRequest(req.Contacts),
		BusinessCard:         req.BusinessCard,
		CurrentProviderBrand: strings.TrimSpace(req.CurrentProviderBrand),
		Notes:                strings.TrimSpace(req.Notes),
		CreatedBy:            &by,
		UpdatedBy:            &by,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func customerPatchFromUpdateRequest(req customerUpdateRequest, by primitive.ObjectID, now time.Time) bson.M {
	update := bson.M{"updatedBy": by, "updatedAt": now}
	if req.Name != nil {
		update["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Province != nil {
		update["province"] = strings.TrimSpace(*req.Province)
	}
	if req.Contacts != nil {
		update["contacts"] = contactsFromRequest(*req.Contacts)
	}
	if req.BusinessCard != nil {
		update["businessCard"] = req.BusinessCard
	}
	if req.CurrentProviderBrand != nil {
		update["currentProviderBrand"] = strings.TrimSpace(*req.CurrentProviderBrand)
	}
	if req.Notes != nil {
		update["notes"] = strings.TrimSpace(*req.Notes)
	}
	return update
}

func ListCustomers(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /customers"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		filter := bson.M{}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			filter["name"] = bson.M{"$regex": search, "$options": "i"}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		total, err := db.Collection("customers").CountDocuments(ctx, filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		findOptions := options.Find().
			SetSort(bson.D{{Key: "name", Value: 1}}).
			SetSkip((page - 1) * limit).
			SetLimit(limit)

		cursor, err := db.Collection("customers").Find(ctx, filter, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		customers := make([]models.Customer, 0)
		if err := cursor.All(ctx, &customers); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "success",
			"pagination": paginationMeta(page, limit, total),
			"data":       customers,
		})
	}
}

func CreateCustomer(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /customers"
		defer handlePanic(c, route)

		user, ok := middleware.UserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "Not authenticated"})
			return
		}

		var req customerCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		customer := customerFromCreateRequest(req, user.ID, time.Now())

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("customers").InsertOne(ctx, customer)
		if mongo.IsDuplicateKeyError(err) {
			respondWithError(c, http.StatusBadRequest, route, "Customer with this name already exists")
			return
		}
		if err != nil {
			log.Println("[CUSTOMER] [ERROR] create failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		customer.ID, _ = res.InsertedID.(primitive.ObjectID)

		log.Println("[CUSTOMER] [INFO] customer created:", customer.Name)
		c.JSON(http.StatusCreated, gin.H{
			"status": "success",
			"data":   customer,
		})
	}
}

func GetCustomerByID(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /customers/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid customer id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var customer models.Customer
		err = db.Collection("customers").FindOne(ctx, bson.M{"_id": id}).Decode(&customer)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "Customer not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data":   customer,
		})
	}
}

func UpdateCustomer(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /customers/:id"
		defer handlePanic(c, route)

		user, ok := middleware.UserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "Not authenticated"})
			return
		}

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid customer id")
			return
		}

		var req customerUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var updated models.Customer
		err = db.Collection("customers").FindOneAndUpdate(
			ctx,
			bson.M{"_id": id},
			bson.M{"$set": customerPatchFromUpdateRequest(req, user.ID, time.Now())},
			findAfterUpdate(),
		).Decode(&updated)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "Customer not found")
			return
		}
		if mongo.IsDuplicateKeyError(err) {
			respondWithError(c, http.StatusBadRequest, route, "Customer with this name already exists")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Println("[CUSTOMER] [INFO] customer updated:", updated.Name)
		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data":   updated,
		})
	}
}

func DeleteCustomer(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /customers/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid customer id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("customers").DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.DeletedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "Customer not found")
			return
		}

		log.Println("[CUSTOMER] [INFO] customer deleted:", id.Hex())
		c.Status(http.StatusNoContent)
	}
}
