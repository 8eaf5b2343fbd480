package player

// HomePlanetRef links a player to the planet they started on.
type HomePlanetRef struct {
	PlayerID     int    `json:"player_id"`
	Username     string `json:"username"`
	HomePlanetID int    `json:"home_planet_id"`
}
