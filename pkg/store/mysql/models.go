package mysql

import "storepulse/pkg/store/mysql/model"

// Re-export types from model package so repository callers don't need a
// second import.

type (
	App           = model.App
	MetricRecord  = model.MetricRecord
	AlertRule     = model.AlertRule
	AlertLog      = model.AlertLog
	ReportConfig  = model.ReportConfig
	TaskSchedule  = model.TaskSchedule
	TaskExecution = model.TaskExecution

	JSONMap = model.JSONMap
)

// Constants re-exported alongside their types.
const (
	PlatformIOS     = model.PlatformIOS
	PlatformAndroid = model.PlatformAndroid

	MetricDownloads            = model.MetricDownloads
	MetricSessions             = model.MetricSessions
	MetricUninstalls           = model.MetricUninstalls
	MetricUniqueDevices        = model.MetricUniqueDevices
	MetricSearchDownloads      = model.MetricSearchDownloads
	MetricWebReferrerDownloads = model.MetricWebReferrerDownloads
	MetricAppReferrerDownloads = model.MetricAppReferrerDownloads
	MetricBrowseDownloads      = model.MetricBrowseDownloads

	ComparisonDayOverDay   = model.ComparisonDayOverDay
	ComparisonWeekOverWeek = model.ComparisonWeekOverWeek
	ComparisonAbsolute     = model.ComparisonAbsolute

	AlertTypeAnomaly = model.AlertTypeAnomaly
	AlertTypeSystem  = model.AlertTypeSystem

	TaskTypeDailyCollection = model.TaskTypeDailyCollection

	FrequencyDaily   = model.FrequencyDaily
	FrequencyWeekly  = model.FrequencyWeekly
	FrequencyMonthly = model.FrequencyMonthly

	TriggerScheduled = model.TriggerScheduled
	TriggerManual    = model.TriggerManual
	TriggerRetry     = model.TriggerRetry

	ExecutionPending   = model.ExecutionPending
	ExecutionRunning   = model.ExecutionRunning
	ExecutionSuccess   = model.ExecutionSuccess
	ExecutionFailed    = model.ExecutionFailed
	ExecutionTimeout   = model.ExecutionTimeout
	ExecutionCancelled = model.ExecutionCancelled
)
