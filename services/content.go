package services

import (
	"learning-progress-system/models"

	"gorm.io/gorm"
)

// ContentService is the read-only boundary to course/lesson reference data.
// The engine never synthesizes content: a missing record is a NotFoundError.
type ContentService struct {
	DB *gorm.DB
}

func NewContentService(db *gorm.DB) *ContentService {
	return &ContentService{DB: db}
}

func (s *ContentService) GetLesson(lessonID string) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := s.DB.Where("id = ?", lessonID).First(&lesson).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "lesson", ID: lessonID}
		}
		return nil, err
	}
	return &lesson, nil
}

func (s *ContentService) GetCourse(courseID string) (*models.Course, error) {
	var course models.Course
	if err := s.DB.Where("id = ?", courseID).First(&course).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "course", ID: courseID}
		}
		return nil, err
	}
	return &course, nil
}

// GetLessonCount prefers the catalog's denormalized count and falls back to
// counting lesson rows when the catalog has none recorded.
func (s *ContentService) GetLessonCount(courseID string) (int, error) {
	course, err := s.GetCourse(courseID)
	if err != nil {
		return 0, err
	}
	if course.LessonCount > 0 {
		return course.LessonCount, nil
	}
	var count int64
	if err := s.DB.Model(&models.Lesson{}).Where("course_id = ?", courseID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}
