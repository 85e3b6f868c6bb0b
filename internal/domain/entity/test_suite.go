package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/dreschagin/qtrack/internal/domain/valueobject"
)

type TestSuite struct {
	ID           string                  `json:"id"`
	Name         string                  `json:"name"`
	Description  string                  `json:"description"`
	TestCases    []string                `json:"testCases"`
	Status       valueobject.SuiteStatus `json:"status"`
	CreatedBy    string                  `json:"createdBy"`
	CreatedAt    time.Time               `json:"createdAt"`
	UpdatedAt    time.Time               `json:"updatedAt"`
	LastExecuted *time.Time              `json:"lastExecuted,omitempty"`
	PassRate     *float64                `json:"passRate,omitempty"`
}

func NewTestSuite(name, description string, testCases []string, createdBy string, now time.Time) *TestSuite {
	if testCases == nil {
		testCases = []string{}
	}
	return &TestSuite{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		TestCases:   testCases,
		Status:      valueobject.SuiteDraft,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
