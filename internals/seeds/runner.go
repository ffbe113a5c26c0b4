package seeds

import (
	"courseku_backend/internals/seeds/courses"

	"gorm.io/gorm"
)

func RunAllSeeds(db *gorm.DB) {

	//* Courses (gratis, berbayar, diskon, harga nol)
	courses.SeedCoursesFromJSON(db, "internals/seeds/courses/data_courses.json")

}
