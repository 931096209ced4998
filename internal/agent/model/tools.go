package model

type CalculatorInput struct {
	Operation string  `json:"operation"`
	A         float64 `json:"a"`
	B         float64 `json:"b"`
}

type CalculatorOutput struct {
	Expression string  `json:"expression"`
	Result     float64 `json:"result"`
}

type CurrentTimeInput struct {
	Timezone string `json:"timezone,omitempty"`
}

type CurrentTimeOutput struct {
	Time     string `json:"time"`
	Timezone string `json:"timezone"`
	Weekday  string `json:"weekday"`
}

type RecallMemoriesInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type RecallMemoriesOutput struct {
	Memories []string `json:"memories"`
	Total    int      `json:"total"`
}
