package plex

type mediaContainer[T any] struct {
	MediaContainer struct {
		Size      int `json:"size"`
		Metadata  []T `json:"Metadata"`
		Directory []T `json:"Directory"`
	} `json:"MediaContainer"`
}

type plexUser struct {
	ID    flexString `json:"id"`
	Title string     `json:"title"`
}

type plexPlayer struct {
	Title             string `json:"title"`
	Product           string `json:"product"`
	Platform          string `json:"platform"`
	MachineIdentifier string `json:"machineIdentifier"`
	State             string `json:"state"`
}

type plexStream struct {
	StreamType           flexInt    `json:"streamType"`
	ColorTrc             string     `json:"colorTrc"`
	DOVIPresent          flexString `json:"DOVIPresent"`
	DisplayTitle         string     `json:"displayTitle"`
	ExtendedDisplayTitle string     `json:"extendedDisplayTitle"`
}

type plexPart struct {
	Stream []plexStream `json:"Stream"`
}

type plexMedia struct {
	Width             flexInt    `json:"width"`
	Height            flexInt    `json:"height"`
	VideoResolution   flexString `json:"videoResolution"`
	VideoCodec        string     `json:"videoCodec"`
	AudioCodec        string     `json:"audioCodec"`
	AudioChannels     flexInt    `json:"audioChannels"`
	VideoDynamicRange string     `json:"videoDynamicRange"`
	Part              []plexPart `json:"Part"`
}

type plexMetadata struct {
	RatingKey            flexString  `json:"ratingKey"`
	GrandparentRatingKey flexString  `json:"grandparentRatingKey"`
	Type                 string      `json:"type"`
	Title                string      `json:"title"`
	ParentTitle          string      `json:"parentTitle"`
	GrandparentTitle     string      `json:"grandparentTitle"`
	Year                 flexInt     `json:"year"`
	Summary              string      `json:"summary"`
	Index                *flexInt    `json:"index"`
	ParentIndex          *flexInt    `json:"parentIndex"`
	Thumb                string      `json:"thumb"`
	Art                  string      `json:"art"`
	ParentThumb          string      `json:"parentThumb"`
	ParentArt            string      `json:"parentArt"`
	GrandparentThumb     string      `json:"grandparentThumb"`
	GrandparentArt       string      `json:"grandparentArt"`
	AddedAt              flexInt     `json:"addedAt"`
	Duration             flexInt     `json:"duration"`
	ViewOffset           flexInt     `json:"viewOffset"`
	User                 *plexUser   `json:"User"`
	Player               *plexPlayer `json:"Player"`
	Media                []plexMedia `json:"Media"`
	Guid                 []plexGUID  `json:"Guid"`
}

type plexGUID struct {
	ID string `json:"id"`
}

type plexDirectory struct {
	Key   flexString `json:"key"`
	Title string     `json:"title"`
	Type  string     `json:"type"`
}
