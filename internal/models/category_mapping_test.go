package models_test

import (
	"github.com/flowledger/backend/internal/models"
)

func (suite *TestSuiteStandard) TestMappingActionValidation() {
	cashFlow := suite.createTestCashFlow(models.CashFlow{})

	// A missing target is only allowed for MAP_TO_UNCATEGORIZED
	err := models.DB.Create(&models.CategoryMapping{
		CashFlowID:   cashFlow.ID,
		BankCategory: "LEBENSMITTEL",
		Type:         models.CategoryTypeOutflow,
		Action:       models.ActionCreateNew,
	}).Error
	suite.Assert().ErrorIs(err, models.ErrMappingActionInvalid)

	err = models.DB.Create(&models.CategoryMapping{
		CashFlowID:   cashFlow.ID,
		BankCategory: "LEBENSMITTEL",
		Type:         models.CategoryTypeOutflow,
		Action:       "SOMETHING_ELSE",
	}).Error
	suite.Assert().ErrorIs(err, models.ErrMappingActionInvalid)
}

func (suite *TestSuiteStandard) TestMappingUncategorizedForcesTarget() {
	cashFlow := suite.createTestCashFlow(models.CashFlow{})

	mapping := models.CategoryMapping{
		CashFlowID:     cashFlow.ID,
		BankCategory:   "SONSTIGES",
		Type:           models.CategoryTypeOutflow,
		TargetCategory: "Ignored",
		Action:         models.ActionMapToUncategorized,
	}
	err := models.DB.Create(&mapping).Error

	suite.Require().Nil(err)
	suite.Assert().Equal(models.UncategorizedName, mapping.TargetCategory)
}

func (suite *TestSuiteStandard) TestMappingParentClearedWithoutSubcategory() {
	cashFlow := suite.createTestCashFlow(models.CashFlow{})

	mapping := models.CategoryMapping{
		CashFlowID:     cashFlow.ID,
		BankCategory:   "LEBENSMITTEL",
		Type:           models.CategoryTypeOutflow,
		TargetCategory: "Groceries",
		ParentCategory: "Living",
		Action:         models.ActionCreateNew,
	}
	err := models.DB.Create(&mapping).Error

	suite.Require().Nil(err)
	suite.Assert().Empty(mapping.ParentCategory, "the parent only applies to CREATE_SUBCATEGORY")
}

func (suite *TestSuiteStandard) TestMappingUnique() {
	cashFlow := suite.createTestCashFlow(models.CashFlow{})

	mapping := models.CategoryMapping{
		CashFlowID:     cashFlow.ID,
		BankCategory:   "LEBENSMITTEL",
		Type:           models.CategoryTypeOutflow,
		TargetCategory: "Groceries",
		Action:         models.ActionCreateNew,
	}
	suite.Require().Nil(models.DB.Create(&mapping).Error)

	duplicate := models.CategoryMapping{
		CashFlowID:     cashFlow.ID,
		BankCategory:   "LEBENSMITTEL",
		Type:           models.CategoryTypeOutflow,
		TargetCategory: "Food",
		Action:         models.ActionCreateNew,
	}
	err := models.DB.Create(&duplicate).Error
	suite.Assert().ErrorIs(err, models.ErrMappingNotUnique)

	// The same bank category for the other flow direction is fine
	inflow := models.CategoryMapping{
		CashFlowID:     cashFlow.ID,
		BankCategory:   "LEBENSMITTEL",
		Type:           models.CategoryTypeInflow,
		TargetCategory: "Refunds",
		Action:         models.ActionCreateNew,
	}
	suite.Assert().Nil(models.DB.Create(&inflow).Error)
}

func (suite *TestSuiteStandard) TestResolvedTarget() {
	mapping := models.CategoryMapping{
		TargetCategory: "Groceries",
		ParentCategory: "Living",
		Action:         models.ActionCreateSubcategory,
	}

	name, parent := mapping.ResolvedTarget()
	suite.Assert().Equal("Groceries", name)
	suite.Assert().Equal("Living", parent)

	mapping.Action = models.ActionMapToUncategorized
	name, parent = mapping.ResolvedTarget()
	suite.Assert().Equal(models.UncategorizedName, name)
	suite.Assert().Empty(parent)
}
