package domain

// Sensory channels an activity engages.
const (
	ChannelPhysical  = "physical"
	ChannelVisual    = "visual"
	ChannelAuditory  = "auditory"
	ChannelTactile   = "tactile"
	ChannelCognitive = "cognitive"
)

// Intensity tiers within a channel.
const (
	IntensityLight    = "light"
	IntensityModerate = "moderate"
	IntensityDeep     = "deep"
)

// Channels lists every channel in ranking tiebreak order.
var Channels = []string{
	ChannelPhysical,
	ChannelVisual,
	ChannelAuditory,
	ChannelTactile,
	ChannelCognitive,
}

// Activity is one immutable catalog entry.
type Activity struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Channel           string   `json:"channel"`
	Intensity         string   `json:"intensity"`
	DurationMinutes   int      `json:"duration_minutes"`
	Benefits          []string `json:"benefits"`
	Contraindications []string `json:"contraindications,omitempty"`
	Resources         []string `json:"resources,omitempty"`
}

// catalog holds two activities per (channel, intensity) pair.
var catalog = []Activity{
	{
		ID: "physical-light-1", Name: "Desk stretches",
		Description: "Stand up and stretch arms, shoulders and neck beside the desk.",
		Channel:     ChannelPhysical, Intensity: IntensityLight, DurationMinutes: 3,
		Benefits: []string{"releases muscle tension", "improves circulation"},
	},
	{
		ID: "physical-light-2", Name: "Hallway walk",
		Description: "Take a slow walk down the hallway or around the room.",
		Channel:     ChannelPhysical, Intensity: IntensityLight, DurationMinutes: 5,
		Benefits: []string{"light movement reset", "change of scenery"},
	},
	{
		ID: "physical-moderate-1", Name: "Jumping jacks",
		Description: "A short set of jumping jacks to raise the heart rate.",
		Channel:     ChannelPhysical, Intensity: IntensityModerate, DurationMinutes: 4,
		Benefits:          []string{"boosts energy", "improves alertness"},
		Contraindications: []string{"joint pain"},
	},
	{
		ID: "physical-moderate-2", Name: "Stair climb",
		Description: "Climb one or two flights of stairs at a steady pace.",
		Channel:     ChannelPhysical, Intensity: IntensityModerate, DurationMinutes: 5,
		Benefits:          []string{"cardio burst", "wakes up the legs"},
		Contraindications: []string{"mobility limitations"},
	},
	{
		ID: "physical-deep-1", Name: "Workout circuit",
		Description: "A full circuit of squats, lunges and wall push-ups.",
		Channel:     ChannelPhysical, Intensity: IntensityDeep, DurationMinutes: 10,
		Benefits:          []string{"full body activation", "stress discharge"},
		Contraindications: []string{"recent injury"},
	},
	{
		ID: "physical-deep-2", Name: "Outdoor run",
		Description: "A brisk run or power walk around the block.",
		Channel:     ChannelPhysical, Intensity: IntensityDeep, DurationMinutes: 12,
		Benefits:  []string{"deep energy reset", "fresh air"},
		Resources: []string{"outdoor space"},
	},
	{
		ID: "visual-light-1", Name: "Window gaze",
		Description: "Look at something at least twenty feet away for a short while.",
		Channel:     ChannelVisual, Intensity: IntensityLight, DurationMinutes: 2,
		Benefits: []string{"relaxes eye muscles", "reduces screen strain"},
	},
	{
		ID: "visual-light-2", Name: "Calming colors",
		Description: "Browse a set of calming photographs or color palettes.",
		Channel:     ChannelVisual, Intensity: IntensityLight, DurationMinutes: 3,
		Benefits: []string{"gentle visual change", "low effort"},
	},
	{
		ID: "visual-moderate-1", Name: "Guided imagery",
		Description: "Follow a short guided visualization of a quiet place.",
		Channel:     ChannelVisual, Intensity: IntensityModerate, DurationMinutes: 5,
		Benefits:  []string{"mental reset", "lowers arousal"},
		Resources: []string{"guided imagery audio"},
	},
	{
		ID: "visual-moderate-2", Name: "Nature scenes",
		Description: "Watch a few minutes of slow nature footage.",
		Channel:     ChannelVisual, Intensity: IntensityModerate, DurationMinutes: 5,
		Benefits: []string{"calming visual input", "attention recovery"},
	},
	{
		ID: "visual-deep-1", Name: "Free drawing",
		Description: "Sketch or doodle freely on paper with no goal.",
		Channel:     ChannelVisual, Intensity: IntensityDeep, DurationMinutes: 10,
		Benefits:  []string{"creative absorption", "deep attention shift"},
		Resources: []string{"paper and pen"},
	},
	{
		ID: "visual-deep-2", Name: "Visual puzzle",
		Description: "Work on a jigsaw section or a spot-the-difference puzzle.",
		Channel:     ChannelVisual, Intensity: IntensityDeep, DurationMinutes: 10,
		Benefits: []string{"focused visual engagement", "satisfying completion"},
	},
	{
		ID: "auditory-light-1", Name: "Quiet minute",
		Description: "Sit in silence or with noise-cancelling headphones on.",
		Channel:     ChannelAuditory, Intensity: IntensityLight, DurationMinutes: 3,
		Benefits: []string{"auditory rest", "lowers stimulation"},
	},
	{
		ID: "auditory-light-2", Name: "Nature sounds",
		Description: "Listen to rain, waves or forest ambience at low volume.",
		Channel:     ChannelAuditory, Intensity: IntensityLight, DurationMinutes: 4,
		Benefits:  []string{"soothing background", "masks distractions"},
		Resources: []string{"ambience playlist"},
	},
	{
		ID: "auditory-moderate-1", Name: "Favorite song",
		Description: "Play one favorite song and give it full attention.",
		Channel:     ChannelAuditory, Intensity: IntensityModerate, DurationMinutes: 4,
		Benefits: []string{"mood lift", "emotional reset"},
	},
	{
		ID: "auditory-moderate-2", Name: "Audio relaxation",
		Description: "Follow a short guided breathing or body scan recording.",
		Channel:     ChannelAuditory, Intensity: IntensityModerate, DurationMinutes: 6,
		Benefits:  []string{"guided wind-down", "lowers heart rate"},
		Resources: []string{"relaxation audio"},
	},
	{
		ID: "auditory-deep-1", Name: "Music immersion",
		Description: "Listen to a full piece of music with eyes closed.",
		Channel:     ChannelAuditory, Intensity: IntensityDeep, DurationMinutes: 10,
		Benefits: []string{"deep auditory absorption", "emotional processing"},
	},
	{
		ID: "auditory-deep-2", Name: "Podcast segment",
		Description: "Listen to a segment of an engaging podcast or audiobook.",
		Channel:     ChannelAuditory, Intensity: IntensityDeep, DurationMinutes: 12,
		Benefits: []string{"absorbing distraction", "perspective shift"},
	},
	{
		ID: "tactile-light-1", Name: "Fidget tool",
		Description: "Use a fidget cube, spinner or putty for a few minutes.",
		Channel:     ChannelTactile, Intensity: IntensityLight, DurationMinutes: 3,
		Benefits:  []string{"regulating input", "keeps hands busy"},
		Resources: []string{"fidget tool"},
	},
	{
		ID: "tactile-light-2", Name: "Hand massage",
		Description: "Massage palms and fingers with slow, firm pressure.",
		Channel:     ChannelTactile, Intensity: IntensityLight, DurationMinutes: 3,
		Benefits: []string{"releases hand tension", "grounding touch"},
	},
	{
		ID: "tactile-moderate-1", Name: "Stress ball set",
		Description: "Work through a set of slow squeezes with a stress ball.",
		Channel:     ChannelTactile, Intensity: IntensityModerate, DurationMinutes: 5,
		Benefits:  []string{"muscle engagement", "tension outlet"},
		Resources: []string{"stress ball"},
	},
	{
		ID: "tactile-moderate-2", Name: "Clay shaping",
		Description: "Shape modelling clay or putty into simple forms.",
		Channel:     ChannelTactile, Intensity: IntensityModerate, DurationMinutes: 6,
		Benefits:  []string{"absorbing tactile play", "fine motor practice"},
		Resources: []string{"modelling clay"},
	},
	{
		ID: "tactile-deep-1", Name: "Craft project",
		Description: "Spend time on a small ongoing craft such as knitting or origami.",
		Channel:     ChannelTactile, Intensity: IntensityDeep, DurationMinutes: 10,
		Benefits:  []string{"deep tactile focus", "sense of progress"},
		Resources: []string{"craft materials"},
	},
	{
		ID: "tactile-deep-2", Name: "Texture kit",
		Description: "Explore a kit of contrasting textures slowly and deliberately.",
		Channel:     ChannelTactile, Intensity: IntensityDeep, DurationMinutes: 10,
		Benefits:  []string{"rich sensory input", "calming repetition"},
		Resources: []string{"texture kit"},
	},
	{
		ID: "cognitive-light-1", Name: "Counted breathing",
		Description: "Breathe in for four counts, hold for four, out for four.",
		Channel:     ChannelCognitive, Intensity: IntensityLight, DurationMinutes: 3,
		Benefits: []string{"quick calm", "anywhere, no equipment"},
	},
	{
		ID: "cognitive-light-2", Name: "Mini mindfulness",
		Description: "Notice five things you can see, four you can hear, three you can feel.",
		Channel:     ChannelCognitive, Intensity: IntensityLight, DurationMinutes: 4,
		Benefits: []string{"grounding", "interrupts rumination"},
	},
	{
		ID: "cognitive-moderate-1", Name: "Crossword clues",
		Description: "Solve a handful of crossword or word puzzle clues.",
		Channel:     ChannelCognitive, Intensity: IntensityModerate, DurationMinutes: 5,
		Benefits: []string{"pleasant mental shift", "vocabulary play"},
	},
	{
		ID: "cognitive-moderate-2", Name: "Sudoku block",
		Description: "Fill in part of a sudoku grid at an easy level.",
		Channel:     ChannelCognitive, Intensity: IntensityModerate, DurationMinutes: 6,
		Benefits: []string{"structured focus", "low stakes problem solving"},
	},
	{
		ID: "cognitive-deep-1", Name: "Strategy puzzle",
		Description: "Work on a chess puzzle or logic problem.",
		Channel:     ChannelCognitive, Intensity: IntensityDeep, DurationMinutes: 10,
		Benefits: []string{"deep cognitive engagement", "satisfying challenge"},
	},
	{
		ID: "cognitive-deep-2", Name: "Journaling",
		Description: "Write freely about the day or a topic on your mind.",
		Channel:     ChannelCognitive, Intensity: IntensityDeep, DurationMinutes: 10,
		Benefits:  []string{"emotional processing", "clears mental load"},
		Resources: []string{"notebook"},
	},
}

// Catalog returns a copy of every activity.
func Catalog() []Activity {
	out := make([]Activity, len(catalog))
	copy(out, catalog)
	return out
}

// ActivitiesBy returns the catalog entries for one channel and intensity.
func ActivitiesBy(channel, intensity string) []Activity {
	var out []Activity
	for _, activity := range catalog {
		if activity.Channel == channel && activity.Intensity == intensity {
			out = append(out, activity)
		}
	}
	return out
}

// ActivityByID looks up a single activity.
func ActivityByID(id string) (Activity, bool) {
	for _, activity := range catalog {
		if activity.ID == id {
			return activity, true
		}
	}
	return Activity{}, false
}
