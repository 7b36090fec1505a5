package topics

const (
	// Bets
	BetEvents = "bet_events"

	// Placares ao vivo
	LiveScores = "live_scores"

	// DLQs
	LiveScoresDLQ = "live_scores_dlq"

	// Canais Redis
	ChannelBetEvents = "bet_events_broadcast"
)
