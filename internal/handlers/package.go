package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/netbill/backend/internal/database"
	"github.com/netbill/backend/internal/models"
)

type PackageHandler struct{}

func NewPackageHandler() *PackageHandler {
	return &PackageHandler{}
}

// List returns all packages
func (h *PackageHandler) List(c *fiber.Ctx) error {
	var packages []models.Package
	if err := database.DB.Order("fee ASC").Find(&packages).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load packages",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    packages,
	})
}

// PackageRequest represents package create/update
type PackageRequest struct {
	Name     string  `json:"name" validate:"required"`
	Fee      float64 `json:"fee" validate:"required,gt=0"`
	Speed    string  `json:"speed"`
	IsActive *bool   `json:"is_active"`
}

// Create adds a package
func (h *PackageHandler) Create(c *fiber.Ctx) error {
	var req PackageRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	pkg := models.Package{
		Name:     req.Name,
		Fee:      req.Fee,
		Speed:    req.Speed,
		IsActive: true,
	}
	if req.IsActive != nil {
		pkg.IsActive = *req.IsActive
	}

	if err := database.DB.Create(&pkg).Error; err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create package (name may already exist)",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    pkg,
	})
}

// Update edits a package. Changing the fee does not touch existing
// month entries; new months pick up the new fee.
func (h *PackageHandler) Update(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid package id",
		})
	}

	var pkg models.Package
	if err := database.DB.First(&pkg, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Package not found",
		})
	}

	var req PackageRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	pkg.Name = req.Name
	pkg.Fee = req.Fee
	pkg.Speed = req.Speed
	if req.IsActive != nil {
		pkg.IsActive = *req.IsActive
	}

	if err := database.DB.Save(&pkg).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update package",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    pkg,
	})
}

// Delete removes a package if no subscriber references it
func (h *PackageHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid package id",
		})
	}

	var count int64
	database.DB.Model(&models.Subscriber{}).Where("package_id = ?", id).Count(&count)
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Package is in use by subscribers",
		})
	}

	if err := database.DB.Delete(&models.Package{}, id).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete package",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Package deleted",
	})
}
