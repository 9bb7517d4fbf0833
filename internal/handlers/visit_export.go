package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"visittrack/internal/middleware"
	"visittrack/internal/models"
)

const exportSheetName = "Visits"

var exportHeaders = []string{
	"วันที่เข้าพบ",
	"ลูกค้า",
	"จังหวัด",
	"ลักษณะงาน",
	"พนักงานขาย",
	"สถานะ",
	"วัตถุประสงค์",
	"รายละเอียด",
}

type visitExportRow struct {
	VisitDate    string
	CustomerName string
	Province     string
	JobType      string
	SalesName    string
	Status       string
	Purpose      string
	Details      string
}

func (r visitExportRow) cells() []interface{} {
	return []interface{}{
		r.VisitDate, r.CustomerName, r.Province, r.JobType,
		r.SalesName, r.Status, r.Purpose, r.Details,
	}
}

// exportSalesName picks the name shown in the spreadsheet: the linked user's
// display name, then their first and last name, then the manual name, then a
// dash placeholder.
func exportSalesName(user *models.User, manual string) string {
	if user != nil {
		if user.DisplayName != "" {
			return user.DisplayName
		}
		if full := strings.TrimSpace(user.FirstName + " " + user.LastName); full != "" {
			return full
		}
	}
	if manual != "" {
		return manual
	}
	return "-"
}

func buildExportRow(visit models.VisitRecord, customer *models.Customer, salesUser *models.User) visitExportRow {
	row := visitExportRow{
		VisitDate: visit.VisitAt.Format("2006-01-02 15:04"),
		JobType:   visit.JobType,
		SalesName: exportSalesName(salesUser, visit.SalesNameManual),
		Status:    visit.Status,
		Purpose:   visit.Purpose,
		Details:   visit.Details,
	}
	if customer != nil {
		row.CustomerName = customer.Name
		row.Province = customer.Province
	}
	return row
}

// ExportVisits streams the visit list as an xlsx attachment. The same filter
// and role scoping as the list endpoint apply, without pagination.
func ExportVisits(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /visits/export/xlsx"
		defer handlePanic(c, route)

		user, ok := middleware.UserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "Not authenticated"})
			return
		}

		query := visitListQuery{
			StartDate:    c.Query("startDate"),
			EndDate:      c.Query("endDate"),
			Status:       c.Query("status"),
			CustomerID:   c.Query("customerId"),
			CustomerName: strings.TrimSpace(c.Query("customerName")),
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		var customerIDs []primitive.ObjectID
		if query.CustomerName != "" {
			ids, err := resolveCustomerIDs(ctx, db, query.CustomerName)
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
			customerIDs = ids
		}

		filter := buildVisitFilter(user, query, customerIDs)

		cursor, err := db.Collection("visits").Find(
			ctx,
			filter,
			options.Find().SetSort(bson.D{{Key: "visitAt", Value: -1}}),
		)
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

		f := excelize.NewFile()
		defer f.Close()
		if err := f.SetSheetName("Sheet1", exportSheetName); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "export error")
			return
		}
		_ = f.SetColWidth(exportSheetName, "A", "H", 22)
		if err := f.SetSheetRow(exportSheetName, "A1", &exportHeaders); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "export error")
			return
		}

		for i, v := range populated {
			var customer *models.Customer
			if v.Customer != nil {
				customer = &models.Customer{Name: v.Customer.Name, Province: v.Customer.Province}
			}
			var salesUser *models.User
			if v.SalesUser != nil {
				salesUser = &models.User{
					DisplayName: v.SalesUser.DisplayName,
					FirstName:   v.SalesUser.FirstName,
					LastName:    v.SalesUser.LastName,
				}
			}
			row := buildExportRow(v.VisitRecord, customer, salesUser)
			cells := row.cells()
			if err := f.SetSheetRow(exportSheetName, fmt.Sprintf("A%d", i+2), &cells); err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "export error")
				return
			}
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", `attachment; filename="visits.xlsx"`)
		if err := f.Write(c.Writer); err != nil {
			log.Println("[VISIT] [ERROR] export write failed:", err)
			return
		}
	}
}
