package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/netbill/backend/internal/database"
	"github.com/netbill/backend/internal/models"
)

type EmployeeHandler struct{}

func NewEmployeeHandler() *EmployeeHandler {
	return &EmployeeHandler{}
}

// List returns all employees, optionally filtered by role
func (h *EmployeeHandler) List(c *fiber.Ctx) error {
	query := database.DB.Model(&models.Employee{})
	if role := c.Query("role", ""); role != "" {
		query = query.Where("role = ?", role)
	}

	var employees []models.Employee
	if err := query.Order("name ASC").Find(&employees).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load employees",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    employees,
	})
}

// EmployeeRequest represents employee create/update
type EmployeeRequest struct {
	Name     string `json:"name" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=fee-collector technician office"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	IsActive *bool  `json:"is_active"`
}

// Create adds an employee
func (h *EmployeeHandler) Create(c *fiber.Ctx) error {
	var req EmployeeRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	employee := models.Employee{
		Name:     req.Name,
		Role:     models.EmployeeRole(req.Role),
		Phone:    req.Phone,
		Address:  req.Address,
		IsActive: true,
	}
	if req.IsActive != nil {
		employee.IsActive = *req.IsActive
	}

	if err := database.DB.Create(&employee).Error; err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create employee (name may already exist)",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    employee,
	})
}

// Update edits an employee
func (h *EmployeeHandler) Update(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid employee id",
		})
	}

	var employee models.Employee
	if err := database.DB.First(&employee, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Employee not found",
		})
	}

	var req EmployeeRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	employee.Name = req.Name
	employee.Role = models.EmployeeRole(req.Role)
	employee.Phone = req.Phone
	employee.Address = req.Address
	if req.IsActive != nil {
		employee.IsActive = *req.IsActive
	}

	if err := database.DB.Save(&employee).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update employee",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    employee,
	})
}

// Delete removes an employee. Income records keyed by the employee's
// name are kept; they are historical fact.
func (h *EmployeeHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid employee id",
		})
	}

	if err := database.DB.Delete(&models.Employee{}, id).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete employee",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Employee deleted",
	})
}
