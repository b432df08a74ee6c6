package v1alpha1

// StringToJobType maps a raw string onto the closed set of job types.
// The boolean reports whether the value was recognized.
func StringToJobType(s string) (JobType, bool) {
	switch s {
	case string(JobTypePatients):
		return JobTypePatients, true
	case string(JobTypeAppointments):
		return JobTypeAppointments, true
	case string(JobTypeClinical):
		return JobTypeClinical, true
	case string(JobTypeFinancial):
		return JobTypeFinancial, true
	default:
		return "", false
	}
}

// StringToInputFormat maps a raw string onto the supported input formats.
func StringToInputFormat(s string) (InputFormat, bool) {
	switch s {
	case string(InputFormatCSV):
		return InputFormatCSV, true
	case string(InputFormatJSON):
		return InputFormatJSON, true
	default:
		return "", false
	}
}

// StringToJobStatus maps a raw string onto a job status.
func StringToJobStatus(s string) JobStatus {
	switch s {
	case string(JobStatusRunning):
		return JobStatusRunning
	case string(JobStatusCompleted):
		return JobStatusCompleted
	case string(JobStatusFailed):
		return JobStatusFailed
	case string(JobStatusRolledBack):
		return JobStatusRolledBack
	default:
		return JobStatusPending
	}
}

// Terminal reports whether the status permits a rollback request.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}
