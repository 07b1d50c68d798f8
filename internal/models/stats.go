package models

type Stats struct {
	TotalUsers         int64 `json:"totalUsers"`
	TotalCandidates    int64 `json:"totalCandidates"`
	TotalComplaints    int64 `json:"totalComplaints"`
	PendingComplaints  int64 `json:"pendingComplaints"`
	ResolvedComplaints int64 `json:"resolvedComplaints"`
	TotalVotes         int64 `json:"totalVotes"`
	TotalDocuments     int64 `json:"totalDocuments"`
}
