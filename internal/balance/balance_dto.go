package balance

import "time"

type CategoryResponse struct {
	Allocated      int `json:"allocated"`
	Used           int `json:"used"`
	CarriedForward int `json:"carried_forward"`
	Remaining      int `json:"remaining"`
	Advance        int `json:"advance,omitempty"`
}

type BalanceResponse struct {
	ID               string           `json:"id"`
	EmployeeID       string           `json:"employee_id"`
	WorkYear         int              `json:"work_year"`
	Year             int              `json:"year"`
	ExpirationDate   string           `json:"expiration_date,omitempty"`
	IsCarriedForward bool             `json:"is_carried_forward"`
	Annual           CategoryResponse `json:"annual"`
	Sick             CategoryResponse `json:"sick"`
	Casual           CategoryResponse `json:"casual"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

type EmployeeInfo struct {
	ID             string `json:"id"`
	EmployeeNumber string `json:"employee_number"`
	FullName       string `json:"full_name"`
	HireDate       string `json:"hire_date"`
}

type PeriodInfo struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type SummaryResponse struct {
	Employee       EmployeeInfo      `json:"employee"`
	WorkYear       int               `json:"work_year"`
	WorkYearPeriod PeriodInfo        `json:"work_year_period"`
	Balances       []BalanceResponse `json:"balances"`
	Statistics     RequestStats      `json:"statistics"`
}

type CarryForwardYear struct {
	WorkYear       int `json:"work_year"`
	Year           int `json:"year"`
	CarriedForward int `json:"carried_forward"`
	Remaining      int `json:"remaining"`
	Used           int `json:"used"`
}

type CarryForwardSummaryResponse struct {
	EmployeeID          string             `json:"employee_id"`
	WorkYears           []CarryForwardYear `json:"work_years"`
	TotalCarriedForward int                `json:"total_carried_forward"`
}

type TransactionResponse struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employee_id"`
	WorkYear   int       `json:"work_year"`
	Category   string    `json:"category"`
	Kind       string    `json:"kind"`
	Days       int       `json:"days"`
	Remaining  int       `json:"remaining"`
	Reason     string    `json:"reason,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type AdjustRequest struct {
	WorkYear int    `json:"work_year" binding:"min=0"`
	Category string `json:"category" binding:"required,oneof=annual sick casual medical"`
	Days     int    `json:"days" binding:"required"`
	Reason   string `json:"reason" binding:"required"`
}

func mapCategoryResponse(c CategoryBalance) CategoryResponse {
	return CategoryResponse{
		Allocated:      c.Allocated,
		Used:           c.Used,
		CarriedForward: c.CarriedForward,
		Remaining:      c.Remaining,
		Advance:        c.Advance,
	}
}

func mapToResponse(b *Balance) BalanceResponse {
	resp := BalanceResponse{
		ID:               b.ID.String(),
		EmployeeID:       b.EmployeeID.String(),
		WorkYear:         b.WorkYear,
		Year:             b.Year,
		IsCarriedForward: b.IsCarriedForward,
		Annual:           mapCategoryResponse(b.Annual),
		Sick:             mapCategoryResponse(b.Sick),
		Casual:           mapCategoryResponse(b.Casual),
		UpdatedAt:        b.UpdatedAt,
	}
	if b.ExpirationDate != nil {
		resp.ExpirationDate = b.ExpirationDate.Format("2006-01-02")
	}
	return resp
}

func mapToListResponse(balances []Balance) []BalanceResponse {
	resp := make([]BalanceResponse, len(balances))
	for i := range balances {
		resp[i] = mapToResponse(&balances[i])
	}
	return resp
}

func mapTransactionResponse(t Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:         t.ID.String(),
		EmployeeID: t.EmployeeID.String(),
		WorkYear:   t.WorkYear,
		Category:   t.Category,
		Kind:       t.Kind,
		Days:       t.Days,
		Remaining:  t.Remaining,
		Reason:     t.Reason,
		CreatedAt:  t.CreatedAt,
	}
	if t.ActorID != nil {
		resp.ActorID = t.ActorID.String()
	}
	return resp
}
