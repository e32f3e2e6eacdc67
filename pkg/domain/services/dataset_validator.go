package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vsinha/procurement/pkg/domain/entities"
)

// DatasetValidator checks field ranges and referential integrity of a planning dataset
type DatasetValidator struct {
	validate *validator.Validate
}

// NewDatasetValidator creates a new dataset validator
func NewDatasetValidator() *DatasetValidator {
	return &DatasetValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidationResult contains the results of dataset validation
type ValidationResult struct {
	UnknownProducts    []entities.ProductID
	DuplicateProducts  []entities.ProductID
	DuplicateSuppliers []entities.SupplierID
	Errors             []string
}

// Valid reports whether validation found no errors
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Err converts the result into a DataInconsistency error, or nil when valid
func (r *ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return entities.NewPlanError(entities.KindDataInconsistency, "validate", "%s", strings.Join(r.Errors, "; "))
}

// ValidateDataset performs struct-level and cross-reference validation
func (v *DatasetValidator) ValidateDataset(ds *entities.Dataset) *ValidationResult {
	result := &ValidationResult{
		UnknownProducts:    make([]entities.ProductID, 0),
		DuplicateProducts:  make([]entities.ProductID, 0),
		DuplicateSuppliers: make([]entities.SupplierID, 0),
		Errors:             make([]string, 0),
	}

	if ds == nil {
		result.Errors = append(result.Errors, "dataset is nil")
		return result
	}

	if err := v.validate.Struct(ds); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			for _, fe := range fieldErrors {
				result.Errors = append(result.Errors, describeFieldError(fe))
			}
		} else {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	products := v.checkProducts(ds, result)
	v.checkSuppliers(ds, products, result)
	v.checkDemand(ds, products, result)

	if !periodicLengthOK(len(ds.WarehouseCapacity), ds.Horizon.Periods) {
		result.Errors = append(result.Errors, fmt.Sprintf(
			"warehouse capacity has %d values for a horizon of %d periods", len(ds.WarehouseCapacity), ds.Horizon.Periods))
	}

	return result
}

// checkProducts detects duplicate ids and ragged per-period arrays
func (v *DatasetValidator) checkProducts(ds *entities.Dataset, result *ValidationResult) map[entities.ProductID]*entities.Product {
	products := make(map[entities.ProductID]*entities.Product, len(ds.Products))
	for i := range ds.Products {
		product := &ds.Products[i]
		if _, exists := products[product.ID]; exists {
			result.DuplicateProducts = append(result.DuplicateProducts, product.ID)
			result.Errors = append(result.Errors, fmt.Sprintf("duplicate product %s", product.ID))
			continue
		}
		products[product.ID] = product

		if !periodicLengthOK(len(product.SafetyStock), ds.Horizon.Periods) {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"product %s safety stock has %d values for a horizon of %d periods",
				product.ID, len(product.SafetyStock), ds.Horizon.Periods))
		}
		if !periodicLengthOK(len(product.Capacity), ds.Horizon.Periods) {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"product %s capacity has %d values for a horizon of %d periods",
				product.ID, len(product.Capacity), ds.Horizon.Periods))
		}
	}
	return products
}

// checkSuppliers verifies every supplier term references an offered, known product
func (v *DatasetValidator) checkSuppliers(
	ds *entities.Dataset,
	products map[entities.ProductID]*entities.Product,
	result *ValidationResult,
) {
	seen := make(map[entities.SupplierID]bool, len(ds.Suppliers))
	for i := range ds.Suppliers {
		supplier := &ds.Suppliers[i]
		if seen[supplier.ID] {
			result.DuplicateSuppliers = append(result.DuplicateSuppliers, supplier.ID)
			result.Errors = append(result.Errors, fmt.Sprintf("duplicate supplier %s", supplier.ID))
			continue
		}
		seen[supplier.ID] = true

		for _, productID := range supplier.Products {
			if _, ok := products[productID]; !ok {
				result.UnknownProducts = append(result.UnknownProducts, productID)
				result.Errors = append(result.Errors, fmt.Sprintf(
					"supplier %s references unknown product %s", supplier.ID, productID))
				continue
			}
			if _, ok := supplier.UnitCost[productID]; !ok {
				result.Errors = append(result.Errors, fmt.Sprintf(
					"supplier %s offers product %s without unit cost", supplier.ID, productID))
			}
		}

		terms := map[string][]entities.ProductID{
			"unit cost":        keys(supplier.UnitCost),
			"logistics cost":   keys(supplier.LogisticsCost),
			"fixed order cost": keys(supplier.FixedOrderCost),
			"moq":              keys(supplier.MOQ),
			"discount":         discountKeys(supplier.Discounts),
		}
		for _, term := range []string{"unit cost", "logistics cost", "fixed order cost", "moq", "discount"} {
			for _, productID := range terms[term] {
				if !supplier.Offers(productID) {
					result.Errors = append(result.Errors, fmt.Sprintf(
						"supplier %s has %s for product %s it does not offer", supplier.ID, term, productID))
				}
			}
		}
	}
}

// checkDemand verifies demand entries reference known products inside the horizon
func (v *DatasetValidator) checkDemand(
	ds *entities.Dataset,
	products map[entities.ProductID]*entities.Product,
	result *ValidationResult,
) {
	type demandKey struct {
		product entities.ProductID
		period  int
	}
	seen := make(map[demandKey]bool, len(ds.Demand))

	for _, entry := range ds.Demand {
		if _, ok := products[entry.ProductID]; !ok {
			result.UnknownProducts = append(result.UnknownProducts, entry.ProductID)
			result.Errors = append(result.Errors, fmt.Sprintf("demand references unknown product %s", entry.ProductID))
			continue
		}
		if !ds.Horizon.Contains(entry.Period) {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"demand for product %s in period %d lies outside the horizon", entry.ProductID, entry.Period))
			continue
		}
		key := demandKey{entry.ProductID, entry.Period}
		if seen[key] {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"duplicate demand for product %s in period %d", entry.ProductID, entry.Period))
		}
		seen[key] = true
	}
}

func describeFieldError(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s (value %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
}

// periodicLengthOK accepts empty, broadcast (single value) and full-horizon arrays
func periodicLengthOK(n, periods int) bool {
	return n == 0 || n == 1 || n == periods
}

func keys(m map[entities.ProductID]float64) []entities.ProductID {
	out := make([]entities.ProductID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sortProductIDs(out)
	return out
}

func discountKeys(m map[entities.ProductID]entities.Discount) []entities.ProductID {
	out := make([]entities.ProductID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sortProductIDs(out)
	return out
}

func sortProductIDs(ids []entities.ProductID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
