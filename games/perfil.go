package games

// Perfil: players take turns revealing clues about a hidden profile (a person,
// place, or thing) while everyone else guesses its identity
// One shared device; player names are entered up front and entry order is turn order
// Categories and a round count are chosen before play; one profile is drawn per round,
// round-robin across the chosen categories, never repeating a profile within a game

// How to play
// - The reader reveals clues one at a time, up to the profile's clue ceiling (20 in the shipped data)
// - Guessing early is worth more; the group decides points and awards them to whoever got it
// - Pass the device to rotate the reader; rotation continues across rounds rather than resetting
// - When the last round ends the scoreboard freezes; play again reshuffles the same plan,
//   reset keeps the players but clears the plan for a new category/round selection

// Implementation details:
// - All state transitions are pure functions in game/; the server serializes them per session
// - Session state is written through to the store after every transition, so reloads resume
// - Watcher websockets are read-only; a second tab or phone shows a live scoreboard
// - Restart tolerates wrap-around reuse of profiles when the pool is smaller than the
//   round count; an initial start does not
