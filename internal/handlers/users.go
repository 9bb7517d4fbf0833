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

	"visittrack/internal/models"
)

type userCreateRequest struct {
	Email       string `json:"email" binding:"required,email"`
	FirstName   string `json:"firstName" binding:"required,max=50"`
	LastName    string `json:"lastName" binding:"required,max=50"`
	DisplayName string `json:"displayName" binding:"omitempty,max=100"`
	Role        string `json:"role" binding:"required,oneof=admin manager sales"`
	IsActive    *bool  `json:"isActive"`
}

type userUpdateRequest struct {
	Email       *string `json:"email" binding:"omitempty,email"`
	FirstName   *string `json:"firstName" binding:"omitempty,max=50"`
	LastName    *string `json:"lastName" binding:"omitempty,max=50"`
	DisplayName *string `json:"displayName" binding:"omitempty,max=100"`
	Role        *string `json:"role" binding:"omitempty,oneof=admin manager sales"`
	IsActive    *bool   `json:"isActive"`
}

func ListUsers(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /users"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		filter := bson.M{}
		if role := strings.TrimSpace(c.Query("role")); role != "" {
			filter["role"] = role
		}
		if v := strings.TrimSpace(c.Query("isActive")); v != "" {
			filter["isActive"] = v == "true"
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			filter["$or"] = bson.A{
				bson.M{"firstName": bson.M{"$regex": search, "$options": "i"}},
				bson.M{"lastName": bson.M{"$regex": search, "$options": "i"}},
				bson.M{"displayName": bson.M{"$regex": search, "$options": "i"}},
				bson.M{"email": bson.M{"$regex": search, "$options": "i"}},
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		total, err := db.Collection("users").CountDocuments(ctx, filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		findOptions := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetSkip((page - 1) * limit).
			SetLimit(limit)

		cursor, err := db.Collection("users").Find(ctx, filter, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		users := make([]models.User, 0)
		if err := cursor.All(ctx, &users); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "success",
			"results":    len(users),
			"pagination": paginationMeta(page, limit, total),
			"data":       gin.H{"users": users},
		})
	}
}

func CreateUser(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /users"
		defer handlePanic(c, route)

		var req userCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		isActive := true
		if req.IsActive != nil {
			isActive = *req.IsActive
		}

		now := time.Now()
		user := models.User{
			Email:       email,
			FirstName:   strings.TrimSpace(req.FirstName),
			LastName:    strings.TrimSpace(req.LastName),
			DisplayName: strings.TrimSpace(req.DisplayName),
			Role:        req.Role,
			IsActive:    isActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if user.DisplayName == "" {
			user.DisplayName = user.FullName()
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("users").InsertOne(ctx, user)
		if mongo.IsDuplicateKeyError(err) {
			respondWithError(c, http.StatusBadRequest, route, "Email already exists")
			return
		}
		if err != nil {
			log.Println("[USER] [ERROR] create user failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		user.ID, _ = res.InsertedID.(primitive.ObjectID)

		log.Println("[USER] [INFO] admin created user:", user.Email)
		c.JSON(http.StatusCreated, gin.H{
			"status": "success",
			"data":   gin.H{"user": user},
		})
	}
}

func GetUserByID(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /users/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid user id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		err = db.Collection("users").FindOne(ctx, bson.M{"_id": id}).Decode(&user)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "User not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data":   gin.H{"user": user},
		})
	}
}

func UpdateUser(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /users/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid user id")
			return
		}

		var req userUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		update := bson.M{"updatedAt": time.Now()}
		if req.Email != nil {
			update["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
		}
		if req.FirstName != nil {
			update["firstName"] = strings.TrimSpace(*req.FirstName)
		}
		if req.LastName != nil {
			update["lastName"] = strings.TrimSpace(*req.LastName)
		}
		if req.DisplayName != nil {
			update["displayName"] = strings.TrimSpace(*req.DisplayName)
		}
		if req.Role != nil {
			update["role"] = *req.Role
		}
		if req.IsActive != nil {
			update["isActive"] = *req.IsActive
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var updated models.User
		err = db.Collection("users").FindOneAndUpdate(
			ctx,
			bson.M{"_id": id},
			bson.M{"$set": update},
			findAfterUpdate(),
		).Decode(&updated)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "User not found")
			return
		}
		if mongo.IsDuplicateKeyError(err) {
			respondWithError(c, http.StatusBadRequest, route, "Email already exists")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Println("[USER] [INFO] user updated by admin:", updated.Email)
		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data":   gin.H{"user": updated},
		})
	}
}

func DeleteUser(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /users/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid user id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("users").DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.DeletedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "User not found")
			return
		}

		log.Println("[USER] [INFO] user deleted by admin:", id.Hex())
		c.Status(http.StatusNoContent)
	}
}

func ActivateUser(db *mongo.Database) gin.HandlerFunc {
	return setUserActive(db, true)
}

func DeactivateUser(db *mongo.Database) gin.HandlerFunc {
	return setUserActive(db, false)
}

func setUserActive(db *mongo.Database, active bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := "PATCH /users/:id/deactivate"
		if active {
			route = "PATCH /users/:id/activate"
		}
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid user id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var updated models.User
		err = db.Collection("users").FindOneAndUpdate(
			ctx,
			bson.M{"_id": id},
			bson.M{"$set": bson.M{"isActive": active, "updatedAt": time.Now()}},
			findAfterUpdate(),
		).Decode(&updated)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "User not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Printf("[USER] [INFO] user %s set active=%v", updated.Email, active)
		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data":   gin.H{"user": updated},
		})
	}
}

// ListSalesUsers backs the salesperson dropdown on the visit form; it is
// available to every authenticated role.
func ListSalesUsers(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /users/sales"
		defer handlePanic(c, route)

		limit := int64(10)
		if _, parsed, err := parsePaginationParams("", c.Query("limit")); err == nil {
			limit = parsed
		}

		filter := bson.M{"role": models.RoleSales, "isActive": true}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			filter["$or"] = bson.A{
				bson.M{"firstName": bson.M{"$regex": search, "$options": "i"}},
				bson.M{"lastName": bson.M{"$regex": search, "$options": "i"}},
				bson.M{"displayName": bson.M{"$regex": search, "$options": "i"}},
				bson.M{"email": bson.M{"$regex": search, "$options": "i"}},
			}
		}

		findOptions := options.Find().
			SetLimit(limit).
			SetSort(bson.D{{Key: "displayName", Value: 1}, {Key: "firstName", Value: 1}}).
			SetProjection(bson.M{
				"displayName": 1,
				"firstName":   1,
				"lastName":    1,
				"email":       1,
				"role":        1,
				"isActive":    1,
			})

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("users").Find(ctx, filter, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		users := make([]models.User, 0)
		if err := cursor.All(ctx, &users); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"results": len(users),
			"data":    gin.H{"users": users},
		})
	}
}
