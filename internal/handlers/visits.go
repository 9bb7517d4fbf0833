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

type visitCreateRequest struct {
	SalesUser       string `json:"salesUser"`
	SalesNameManual string `json:"salesNameManual"`

	Brand   string    `json:"brand" binding:"required,oneof=PCKem Watreat"`
	VisitAt time.Time `json:"visitAt" binding:"required"`

	Customer       string                 `json:"customer"`
	NewCustomer    *customerCreateRequest `json:"newCustomer"`
	CustomerUpdate *customerUpdateRequest `json:"customerUpdate"`

	JobType   string   `json:"jobType" binding:"omitempty,oneof='Chemical Service' Project Maintenance Trading"`
	BudgetTHB *float64 `json:"budgetTHB" binding:"omitempty,gte=0"`
	Purpose   string   `json:"purpose"`

	ProductPresented string           `json:"productPresented"`
	Details          string           `json:"details"`
	NeedHelp         string           `json:"needHelp"`
	WinReason        string           `json:"winReason"`
	EvaluationScore  *int             `json:"evaluationScore" binding:"omitempty,min=-5,max=5"`
	NextActionPlan   string           `json:"nextActionPlan"`
	NextVisitAt      *time.Time       `json:"nextVisitAt"`
	Photos           []models.FileRef `json:"photos" binding:"omitempty,max=3"`

	Status string `json:"status" binding:"omitempty,oneof=planned in-progress completed cancelled pending"`
}

// visitUpdateRequest keeps every field a pointer so an omitted key can be told
// apart from an explicit zero value. Status in particular needs that: omitting
// it and sending the current value lead to different derived statuses.
type visitUpdateRequest struct {
	SalesUser       *string `json:"salesUser"`
	SalesNameManual *string `json:"salesNameManual"`

	Brand   *string    `json:"brand" binding:"omitempty,oneof=PCKem Watreat"`
	VisitAt *time.Time `json:"visitAt"`

	Customer       *string                `json:"customer"`
	NewCustomer    *customerCreateRequest `json:"newCustomer"`
	CustomerUpdate *customerUpdateRequest `json:"customerUpdate"`

	JobType   *string  `json:"jobType" binding:"omitempty,oneof='Chemical Service' Project Maintenance Trading"`
	BudgetTHB *float64 `json:"budgetTHB" binding:"omitempty,gte=0"`
	Purpose   *string  `json:"purpose"`

	ProductPresented *string           `json:"productPresented"`
	Details          *string           `json:"details"`
	NeedHelp         *string           `json:"needHelp"`
	WinReason        *string           `json:"winReason"`
	EvaluationScore  *int              `json:"evaluationScore" binding:"omitempty,min=-5,max=5"`
	NextActionPlan   *string           `json:"nextActionPlan"`
	NextVisitAt      *time.Time        `json:"nextVisitAt"`
	Photos           *[]models.FileRef `json:"photos" binding:"omitempty,max=3"`

	Status *string `json:"status" binding:"omitempty,oneof=planned in-progress completed cancelled pending"`
}

// visitCustomerRef and visitSalesRef are the populated shapes embedded in list
// and detail responses in place of the bare object ids.
type visitCustomerRef struct {
	ID       primitive.ObjectID `json:"id"`
	Name     string             `json:"name"`
	Province string             `json:"province,omitempty"`
}

type visitSalesRef struct {
	ID          primitive.ObjectID `json:"id"`
	DisplayName string             `json:"displayName,omitempty"`
	FirstName   string             `json:"firstName,omitempty"`
	LastName    string             `json:"lastName,omitempty"`
	Email       string             `json:"email"`
}

// visitResponse shadows the reference ids on VisitRecord with the populated
// documents; the shallower fields win during JSON encoding.
type visitResponse struct {
	models.VisitRecord
	Customer  *visitCustomerRef `json:"customer,omitempty"`
	SalesUser *visitSalesRef    `json:"salesUser,omitempty"`
}

func validVisitPurpose(purpose string) bool {
	if purpose == "" {
		return true
	}
	for _, p := range models.VisitPurposes {
		if p == purpose {
			return true
		}
	}
	return false
}

// resolveVisitCustomer handles the inline customer block of a visit payload:
// a newCustomer creates one, a customer id with customerUpdate patches it.
// These are plain sequential writes; if the visit save fails afterwards the
// customer change stands and the caller logs it.
func resolveVisitCustomer(ctx context.Context, db *mongo.Database, customerID string, newCustomer *customerCreateRequest, patch *customerUpdateRequest, by primitive.ObjectID) (*primitive.ObjectID, int, string) {
	if newCustomer != nil && customerID == "" {
		customer := customerFromCreateRequest(*newCustomer, by, time.Now())
		res, err := db.Collection("customers").InsertOne(ctx, customer)
		if mongo.IsDuplicateKeyError(err) {
			return nil, http.StatusBadRequest, "Customer with this name already exists"
		}
		if err != nil {
			log.Println("[VISIT] [ERROR] inline customer create failed:", err)
			return nil, http.StatusInternalServerError, "db error"
		}
		id, _ := res.InsertedID.(primitive.ObjectID)
		return &id, 0, ""
	}

	if customerID == "" {
		return nil, 0, ""
	}

	id, err := primitive.ObjectIDFromHex(customerID)
	if err != nil {
		return nil, http.StatusBadRequest, "invalid customer id"
	}

	if patch != nil {
		err := db.Collection("customers").FindOneAndUpdate(
			ctx,
			bson.M{"_id": id},
			bson.M{"$set": customerPatchFromUpdateRequest(*patch, by, time.Now())},
			findAfterUpdate(),
		).Err()
		if err == mongo.ErrNoDocuments {
			return nil, http.StatusNotFound, "Customer not found"
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, http.StatusBadRequest, "Customer with this name already exists"
		}
		if err != nil {
			log.Println("[VISIT] [ERROR] inline customer update failed:", err)
			return nil, http.StatusInternalServerError, "db error"
		}
	}

	return &id, 0, ""
}

// resolveCustomerIDs turns a customerName search into the matching customer
// id set. An empty result is still meaningful: the visit filter applies it as
// an empty $in so the list comes back empty instead of unfiltered.
func resolveCustomerIDs(ctx context.Context, db *mongo.Database, name string) ([]primitive.ObjectID, error) {
	cursor, err := db.Collection("customers").Find(
		ctx,
		bson.M{"name": bson.M{"$regex": name, "$options": "i"}},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	ids := make([]primitive.ObjectID, 0)
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID)
	}
	return ids, cursor.Err()
}

// populateVisits attaches customer and sales-user summaries to the raw visit
// records with two $in lookups.
func populateVisits(ctx context.Context, db *mongo.Database, visits []models.VisitRecord) ([]visitResponse, error) {
	customerIDs := make([]primitive.ObjectID, 0)
	userIDs := make([]primitive.ObjectID, 0)
	seenCustomers := make(map[primitive.ObjectID]bool)
	seenUsers := make(map[primitive.ObjectID]bool)
	for _, v := range visits {
		if v.Customer != nil && !seenCustomers[*v.Customer] {
			seenCustomers[*v.Customer] = true
			customerIDs = append(customerIDs, *v.Customer)
		}
		if v.SalesUser != nil && !seenUsers[*v.SalesUser] {
			seenUsers[*v.SalesUser] = true
			userIDs = append(userIDs, *v.SalesUser)
		}
	}

	customers := make(map[primitive.ObjectID]models.Customer)
	if len(customerIDs) > 0 {
		cursor, err := db.Collection("customers").Find(ctx, bson.M{"_id": bson.M{"$in": customerIDs}})
		if err != nil {
			return nil, err
		}
		var docs []models.Customer
		if err := cursor.All(ctx, &docs); err != nil {
			return nil, err
		}
		for _, doc := range docs {
			customers[doc.ID] = doc
		}
	}

	users := make(map[primitive.ObjectID]models.User)
	if len(userIDs) > 0 {
		cursor, err := db.Collection("users").Find(ctx, bson.M{"_id": bson.M{"$in": userIDs}})
		if err != nil {
			return nil, err
		}
		var docs []models.User
		if err := cursor.All(ctx, &docs); err != nil {
			return nil, err
		}
		for _, doc := range docs {
			users[doc.ID] = doc
		}
	}

	out := make([]visitResponse, 0, len(visits))
	for _, v := range visits {
		resp := visitResponse{VisitRecord: v}
		if v.Customer != nil {
			if customer, ok := customers[*v.Customer]; ok {
				resp.Customer = &visitCustomerRef{ID: customer.ID, Name: customer.Name, Province: customer.Province}
			}
		}
		if v.SalesUser != nil {
			if user, ok := users[*v.SalesUser]; ok {
				resp.SalesUser = &visitSalesRef{
					ID:          user.ID,
					DisplayName: user.DisplayName,
					FirstName:   user.FirstName,
					LastName:    user.LastName,
					Email:       user.Email,
				}
			}
		}
		out = append(out, resp)
	}
	return out, nil
}

func populateVisit(ctx context.Context, db *mongo.Database, visit models.VisitRecord) (visitResponse, error) {
	populated, err := populateVisits(ctx, db, []models.VisitRecord{visit})
	if err != nil {
		return visitResponse{}, err
	}
	return populated[0], nil
}

func CreateVisit(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /visits"
		defer handlePanic(c, route)

		user, ok := middleware.UserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "Not authenticated"})
			return
		}

		var req visitCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if req.SalesUser == "" && strings.TrimSpace(req.SalesNameManual) == "" {
			respondWithError(c, http.StatusBadRequest, route, "Either salesUser or salesNameManual is required")
			return
		}
		if !validVisitPurpose(req.Purpose) {
			respondWithError(c, http.StatusBadRequest, route, "Invalid purpose")
			return
		}

		var salesUser *primitive.ObjectID
		if req.SalesUser != "" {
			id, err := primitive.ObjectIDFromHex(req.SalesUser)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid salesUser id")
				return
			}
			salesUser = &id
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		customerID, code, msg := resolveVisitCustomer(ctx, db, req.Customer, req.NewCustomer, req.CustomerUpdate, user.ID)
		if code != 0 {
			respondWithError(c, code, route, msg)
			return
		}

		complete := visitKeyFieldsComplete(req.ProductPresented, req.Details, len(req.Photos))
		now := time.Now()
		photos := req.Photos
		if photos == nil {
			photos = []models.FileRef{}
		}

		visit := models.VisitRecord{
			SalesUser:        salesUser,
			SalesNameManual:  strings.TrimSpace(req.SalesNameManual),
			Brand:            req.Brand,
			VisitAt:          req.VisitAt,
			Customer:         customerID,
			JobType:          req.JobType,
			BudgetTHB:        req.BudgetTHB,
			Purpose:          req.Purpose,
			ProductPresented: req.ProductPresented,
			Details:          req.Details,
			NeedHelp:         req.NeedHelp,
			WinReason:        req.WinReason,
			EvaluationScore:  req.EvaluationScore,
			NextActionPlan:   req.NextActionPlan,
			NextVisitAt:      req.NextVisitAt,
			Photos:           photos,
			Status:           deriveCreateStatus(req.Status, complete),
			CreatedBy:        user.ID,
			UpdatedBy:        user.ID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		res, err := db.Collection("visits").InsertOne(ctx, visit)
		if err != nil {
			// The inline customer write already went through; it stays.
			log.Println("[VISIT] [ERROR] create failed after customer step:", err)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		visit.ID, _ = res.InsertedID.(primitive.ObjectID)

		populated, err := populateVisit(ctx, db, visit)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Println("[VISIT] [INFO] visit created:", visit.ID.Hex(), "status:", visit.Status)
		c.JSON(http.StatusCreated, gin.H{
			"status": "success",
			"data":   populated,
		})
	}
}

func ListVisits(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /visits"
		defer handlePanic(c, route)

		user, ok := middleware.UserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "Not authenticated"})
			return
		}

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		query := visitListQuery{
			StartDate:    c.Query("startDate"),
			EndDate:      c.Query("endDate"),
			Status:       c.Query("status"),
			CustomerID:   c.Query("customerId"),
			CustomerName: strings.TrimSpace(c.Query("customerName")),
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var customerIDs []primitive.ObjectID
		if query.CustomerName != "" {
			customerIDs, err = resolveCustomerIDs(ctx, db, query.CustomerName)
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
		}

		filter := buildVisitFilter(user, query, customerIDs)

		total, err := db.Collection("visits").CountDocuments(ctx, filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		findOptions := options.Find().
			SetSort(bson.D{{Key: "visitAt", Value: -1}}).
			SetSkip((page - 1) * limit).
			SetLimit(limit)

		cursor, err := db.Collection("visits").Find(ctx, filter, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		visits := make([]models.VisitRecord, 0)
		if err := cursor.All(ctx, &visits); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		populated, err := populateVisits(ctx, db, visits)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "success",
			"pagination": paginationMeta(page, limit, total),
			"data":       populated,
		})
	}
}

func GetVisitByID(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /visits/:id"
		defer handlePanic(c, route)

		user, ok := middleware.UserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "Not authenticated"})
			return
		}

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid visit id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var visit models.VisitRecord
		err = db.Collection("visits").FindOne(ctx, bson.M{"_id": id}).Decode(&visit)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "Visit not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if !canAccessVisit(user, visit.CreatedBy) {
			respondWithError(c, http.StatusForbidden, route, "You do not have permission to view this visit")
			return
		}

		populated, err := populateVisit(ctx, db, visit)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data":   populated,
		})
	}
}

// updateCustomerHex picks the customer id an update operates on: the
// payload's id, else the visit's stored link. A fresh customer is only
// created when neither carries one, so newCustomer cannot silently relink
// an already-linked visit.
func updateCustomerHex(req visitUpdateRequest, stored *primitive.ObjectID) string {
	if req.Customer != nil && *req.Customer != "" {
		return *req.Customer
	}
	if stored != nil {
		return stored.Hex()
	}
	return ""
}

// resolveUpdatedStatus derives the stored status for an update. Binding lets
// an explicit "" through; it counts as an omitted key, since only named
// statuses may be stored.
func resolveUpdatedStatus(stored string, req visitUpdateRequest, complete bool) string {
	requested := ""
	if req.Status != nil {
		requested = *req.Status
	}
	return deriveUpdateStatus(stored, requested, requested != "", complete)
}

// applyVisitUpdate merges the provided fields onto the stored record. Status
// is handled separately by the caller since its derivation needs both the
// merged fields and whether the key was present at all.
func applyVisitUpdate(visit *models.VisitRecord, req visitUpdateRequest) {
	if req.SalesUser != nil {
		if *req.SalesUser == "" {
			visit.SalesUser = nil
		} else if id, err := primitive.ObjectIDFromHex(*req.SalesUser); err == nil {
			visit.SalesUser = &id
		}
	}
	if req.SalesNameManual != nil {
		visit.SalesNameManual = strings.TrimSpace(*req.SalesNameManual)
	}
	if req.Brand != nil {
		visit.Brand = *req.Brand
	}
	if req.VisitAt != nil {
		visit.VisitAt = *req.VisitAt
	}
	if req.JobType != nil {
		visit.JobType = *req.JobType
	}
	if req.BudgetTHB != nil {
		visit.BudgetTHB = req.BudgetTHB
	}
	if req.Purpose != nil {
		visit.Purpose = *req.Purpose
	}
	if req.ProductPresented != nil {
		visit.ProductPresented = *req.ProductPresented
	}
	if req.Details != nil {
		visit.Details = *req.Details
	}
	if req.NeedHelp != nil {
		visit.NeedHelp = *req.NeedHelp
	}
	if req.WinReason != nil {
		visit.WinReason = *req.WinReason
	}
	if req.EvaluationScore != nil {
		visit.EvaluationScore = req.EvaluationScore
	}
	if req.NextActionPlan != nil {
		visit.NextActionPlan = *req.NextActionPlan
	}
	if req.NextVisitAt != nil {
		visit.NextVisitAt = req.NextVisitAt
	}
	if req.Photos != nil {
		visit.Photos = *req.Photos
	}
}

func UpdateVisit(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /visits/:id"
		defer handlePanic(c, route)

		user, ok := middleware.UserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "Not authenticated"})
			return
		}

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid visit id")
			return
		}

		var req visitUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if req.Purpose != nil && !validVisitPurpose(*req.Purpose) {
			respondWithError(c, http.StatusBadRequest, route, "Invalid purpose")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var visit models.VisitRecord
		err = db.Collection("visits").FindOne(ctx, bson.M{"_id": id}).Decode(&visit)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "Visit not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if !canAccessVisit(user, visit.CreatedBy) {
			respondWithError(c, http.StatusForbidden, route, "You do not have permission to modify this visit")
			return
		}

		if req.Customer != nil || req.NewCustomer != nil || req.CustomerUpdate != nil {
			customerHex := updateCustomerHex(req, visit.Customer)
			customerID, code, msg := resolveVisitCustomer(ctx, db, customerHex, req.NewCustomer, req.CustomerUpdate, user.ID)
			if code != 0 {
				respondWithError(c, code, route, msg)
				return
			}
			if customerID != nil {
				visit.Customer = customerID
			}
		}

		storedStatus := visit.Status
		applyVisitUpdate(&visit, req)

		complete := visitKeyFieldsComplete(visit.ProductPresented, visit.Details, len(visit.Photos))
		visit.Status = resolveUpdatedStatus(storedStatus, req, complete)

		visit.UpdatedBy = user.ID
		visit.UpdatedAt = time.Now()
		if visit.Photos == nil {
			visit.Photos = []models.FileRef{}
		}

		if _, err := db.Collection("visits").ReplaceOne(ctx, bson.M{"_id": id}, visit); err != nil {
			log.Println("[VISIT] [ERROR] update failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		populated, err := populateVisit(ctx, db, visit)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Println("[VISIT] [INFO] visit updated:", id.Hex(), "status:", visit.Status)
		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data":   populated,
		})
	}
}

func DeleteVisit(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /visits/:id"
		defer handlePanic(c, route)

		user, ok := middleware.UserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "Not authenticated"})
			return
		}

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid visit id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var visit models.VisitRecord
		err = db.Collection("visits").FindOne(ctx, bson.M{"_id": id}).Decode(&visit)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "Visit not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if !canAccessVisit(user, visit.CreatedBy) {
			respondWithError(c, http.StatusForbidden, route, "You do not have permission to delete this visit")
			return
		}

		if _, err := db.Collection("visits").DeleteOne(ctx, bson.M{"_id": id}); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Println("[VISIT] [INFO] visit deleted:", id.Hex())
		c.Status(http.StatusNoContent)
	}
}
