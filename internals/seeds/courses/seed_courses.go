package courses

import (
	"log"
	"os"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"courseku_backend/internals/features/courses/catalog/model"
)

type CourseSeed struct {
	CourseID        uuid.UUID        `json:"course_id"`
	CourseTitle     string           `json:"course_title"`
	CourseSlug      string           `json:"course_slug"`
	CourseIsFree    bool             `json:"course_is_free"`
	CoursePrice     decimal.Decimal  `json:"course_price"`
	CourseSalePrice *decimal.Decimal `json:"course_sale_price"`
}

func SeedCoursesFromJSON(db *gorm.DB, filePath string) {
	log.Println("📥 Membaca file:", filePath)

	file, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatalf("❌ Gagal membaca file JSON: %v", err)
	}

	var seeds []CourseSeed
	if err := sonic.Unmarshal(file, &seeds); err != nil {
		log.Fatalf("❌ Gagal decode JSON: %v", err)
	}

	for _, seed := range seeds {
		var existing model.Course
		if err := db.Where("course_slug = ?", seed.CourseSlug).First(&existing).Error; err == nil {
			log.Printf("ℹ️ Course '%s' sudah ada, lewati...", seed.CourseSlug)
			continue
		}

		course := model.Course{
			CourseID:        seed.CourseID,
			CourseTitle:     seed.CourseTitle,
			CourseSlug:      seed.CourseSlug,
			CourseIsFree:    seed.CourseIsFree,
			CoursePrice:     seed.CoursePrice,
			CourseSalePrice: seed.CourseSalePrice,
		}

		if err := db.Create(&course).Error; err != nil {
			log.Printf("❌ Gagal insert '%s': %v", seed.CourseSlug, err)
		} else {
			log.Printf("✅ Berhasil insert '%s'", seed.CourseSlug)
		}
	}
}
