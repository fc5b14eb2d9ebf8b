package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/netbill/backend/internal/billing"
	"github.com/netbill/backend/internal/calendar"
	"github.com/netbill/backend/internal/database"
	"github.com/netbill/backend/internal/services"
)

type ReportHandler struct {
	engine *billing.Engine
}

func NewReportHandler(engine *billing.Engine) *ReportHandler {
	return &ReportHandler{engine: engine}
}

// IncomeWorkbook streams the income statement for a billing month as an
// xlsx download. Accepts ?year=2026&month=8; defaults to the current
// billing month.
func (h *ReportHandler) IncomeWorkbook(c *fiber.Ctx) error {
	today := h.engine.Clock().Today()
	year := c.QueryInt("year", today.Year)
	monthNum := c.QueryInt("month", int(today.Month))
	if monthNum < 1 || monthNum > 12 || year < 2000 || year > 2100 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid year or month",
		})
	}

	month := calendar.NewDate(year, time.Month(monthNum), 1)
	f, err := services.BuildIncomeWorkbook(database.DB, month.MonthLabel())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to build report",
		})
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to render report",
		})
	}

	filename := fmt.Sprintf("income-%04d-%02d.xlsx", year, monthNum)
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(buf.Bytes())
}
