package ledger

// FundingSource identifies the budget an allocation is drawn from
type FundingSource string

const (
	FundingSourceCentralBudget         FundingSource = "CENTRAL_BUDGET"
	FundingSourceRegionalProvince      FundingSource = "REGIONAL_BUDGET_PROVINCE"
	FundingSourceRegionalDistrict      FundingSource = "REGIONAL_BUDGET_DISTRICT" // district or city budget
	FundingSourceDecentralizedBudget   FundingSource = "DECENTRALIZED_BUDGET"
	FundingSourceSpecialAllocationFund FundingSource = "SPECIAL_ALLOCATION_FUND"
	FundingSourceGrant                 FundingSource = "GRANT"
	FundingSourceMixed                 FundingSource = "MIXED"
)

// IsValid checks if the source is a valid FundingSource
func (s FundingSource) IsValid() bool {
	switch s {
	case FundingSourceCentralBudget, FundingSourceRegionalProvince, FundingSourceRegionalDistrict,
		FundingSourceDecentralizedBudget, FundingSourceSpecialAllocationFund, FundingSourceGrant,
		FundingSourceMixed:
		return true
	}
	return false
}

func (s FundingSource) String() string {
	return string(s)
}

// TransactionCategory classifies an expenditure
type TransactionCategory string

const (
	CategoryFoodProcurement TransactionCategory = "FOOD_PROCUREMENT"
	CategoryOperational     TransactionCategory = "OPERATIONAL"
	CategoryTransport       TransactionCategory = "TRANSPORT"
	CategoryUtilities       TransactionCategory = "UTILITIES"
	CategoryStaffSalary     TransactionCategory = "STAFF_SALARY"
	CategoryEquipment       TransactionCategory = "EQUIPMENT"
	CategoryPackaging       TransactionCategory = "PACKAGING"
	CategoryMarketing       TransactionCategory = "MARKETING"
	CategoryTraining        TransactionCategory = "TRAINING"
	CategoryMaintenance     TransactionCategory = "MAINTENANCE"
	CategoryOther           TransactionCategory = "OTHER"
)

// IsValid checks if the category is a valid TransactionCategory
func (c TransactionCategory) IsValid() bool {
	switch c {
	case CategoryFoodProcurement, CategoryOperational, CategoryTransport, CategoryUtilities,
		CategoryStaffSalary, CategoryEquipment, CategoryPackaging, CategoryMarketing,
		CategoryTraining, CategoryMaintenance, CategoryOther:
		return true
	}
	return false
}

func (c TransactionCategory) String() string {
	return string(c)
}
