// Package pricing menentukan nominal yang harus dibayar untuk sebuah course.
package pricing

import (
	"github.com/shopspring/decimal"

	catalogModel "courseku_backend/internals/features/courses/catalog/model"
)

// Attributes adalah atribut harga course yang relevan untuk checkout.
type Attributes struct {
	IsFree    bool
	Price     decimal.Decimal
	SalePrice *decimal.Decimal
}

// FromCourse mengambil atribut harga dari model katalog.
func FromCourse(c *catalogModel.Course) Attributes {
	if c == nil {
		return Attributes{}
	}
	return Attributes{
		IsFree:    c.CourseIsFree,
		Price:     c.CoursePrice,
		SalePrice: c.CourseSalePrice,
	}
}

// Resolve: gratis → 0; sale price > 0 → sale price; selain itu harga dasar.
func Resolve(a Attributes) decimal.Decimal {
	if a.IsFree {
		return decimal.Zero
	}
	if a.SalePrice != nil && a.SalePrice.IsPositive() {
		return *a.SalePrice
	}
	return a.Price
}

// IsFree true kalau nominal hasil Resolve tidak perlu lewat gateway.
func IsFree(amount decimal.Decimal) bool {
	return !amount.IsPositive()
}
