package router

import (
	"time"

	"github.com/angelmondragon/assetflow-backend/internal/analytics/types"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox/payloads"
)

func assetEventBuilders() map[enums.OutboxEventType]rowBuilder {
	decided := rowFor(func(row *types.AssetEventRow, e *payloads.RequestDecidedEvent) time.Time {
		row.CompanyName = optional(e.CompanyName)
		row.HREmail = optional(e.HREmail)
		row.EmployeeEmail = optional(e.RequesterEmail)
		row.AssetID = optional(e.AssetID.String())
		row.Status = optional(string(e.Status))
		return e.DecidedAt
	})
	affiliation := rowFor(func(row *types.AssetEventRow, e *payloads.AffiliationEvent) time.Time {
		row.CompanyName = optional(e.CompanyName)
		row.HREmail = optional(e.HREmail)
		row.EmployeeEmail = optional(e.EmployeeEmail)
		row.Status = optional(string(e.Status))
		row.Quantity = count(e.CurrentEmployees)
		return e.OccurredAt
	})

	return map[enums.OutboxEventType]rowBuilder{
		enums.EventRequestCreated: rowFor(func(row *types.AssetEventRow, e *payloads.RequestCreatedEvent) time.Time {
			row.CompanyName = optional(e.CompanyName)
			row.HREmail = optional(e.HREmail)
			row.EmployeeEmail = optional(e.RequesterEmail)
			row.AssetID = optional(e.AssetID.String())
			row.AssetName = optional(e.AssetName)
			row.Status = optional(string(enums.RequestStatusPending))
			return e.RequestedAt
		}),
		enums.EventRequestApproved: decided,
		enums.EventRequestRejected: decided,
		enums.EventAssetAssigned: rowFor(func(row *types.AssetEventRow, e *payloads.AssetAssignedEvent) time.Time {
			row.CompanyName = optional(e.CompanyName)
			row.HREmail = optional(e.HREmail)
			row.EmployeeEmail = optional(e.EmployeeEmail)
			row.AssetID = optional(e.AssetID.String())
			row.AssetName = optional(e.AssetName)
			row.Source = optional(string(e.Source))
			row.Quantity = count(e.AvailableQuantity)
			return e.AssignedAt
		}),
		enums.EventAssetReturned: rowFor(func(row *types.AssetEventRow, e *payloads.AssetReturnedEvent) time.Time {
			row.CompanyName = optional(e.CompanyName)
			row.HREmail = optional(e.HREmail)
			row.EmployeeEmail = optional(e.EmployeeEmail)
			row.AssetID = optional(e.AssetID.String())
			row.Source = optional(string(e.Mode))
			return e.ReturnedAt
		}),
		enums.EventAffiliationActivated: affiliation,
		enums.EventAffiliationRemoved:   affiliation,
		enums.EventPaymentConfirmed: rowFor(func(row *types.AssetEventRow, e *payloads.PaymentConfirmedEvent) time.Time {
			row.HREmail = optional(e.HREmail)
			row.PackageName = optional(e.PackageName)
			row.AmountCents = count(e.AmountCents)
			row.Quantity = count(e.PackageLimit)
			return e.PaidAt
		}),
	}
}
