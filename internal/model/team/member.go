package team

// Member is one entry of the team roster page.
type Member struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	RM       string `json:"rm"`
	GitHub   string `json:"github,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Image    string `json:"image,omitempty"`
}

// Seed provides the roster shown on the team page.
func Seed() []Member {
	return []Member{
		{
			ID:       "vinicius-carvalho",
			Name:     "Vinicius Souza Carvalho",
			Role:     "Back-end Developer",
			RM:       "556089",
			GitHub:   "https://github.com/SouzaEu",
			LinkedIn: "https://www.linkedin.com/in/souzav/",
			Image:    "/rosto-vini.jpg",
		},
		{
			ID:     "gabriel-pinto",
			Name:   "Gabriel Duarte Pinto",
			Role:   "UI/UX Designer",
			RM:     "556972",
			GitHub: "https://github.com/gabrielduar7e",
			Image:  "/gabrielgatao.jpg",
		},
		{
			ID:     "thomaz-bartol",
			Name:   "Thomaz Oliveira Bartol",
			Role:   "Front-end Developer",
			RM:     "555323",
			GitHub: "https://github.com/ThomazBartol",
			Image:  "/rosto-thomaz.jpg",
		},
	}
}
