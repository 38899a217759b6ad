package services

import "arxiv_digest/internal/llm"

func NewResearcherAgent(fetchTool llm.Tool, verbose bool) *llm.Agent {
	return &llm.Agent{
		Role: "Senior AI Researcher",
		Goal: "Identify and rank the top {top} most significant ArXiv papers published on {date} in specified AI categories. " +
			"Focus on papers with potential for high impact or novel contributions.",
		Backstory: "You are a highly experienced AI researcher with a Ph.D. and numerous publications in top-tier journals and conferences. " +
			"You have a keen eye for groundbreaking research and can quickly discern a paper's quality and potential impact from its abstract and title. " +
			"Your expertise spans across various AI subfields including NLP, Computer Vision, Machine Learning, and Robotics.",
		Tools:   []llm.Tool{fetchTool},
		Verbose: verbose,
	}
}

func NewFrontendEngineerAgent(verbose bool) *llm.Agent {
	return &llm.Agent{
		Role: "Senior Frontend Engineer specializing in AI Application Interfaces",
		Goal: "Create a well-structured and visually appealing HTML report summarizing the top AI research papers identified by the researcher.",
		Backstory: "You are a seasoned frontend engineer with over a decade of experience in building intuitive and responsive web interfaces. " +
			"You have a strong understanding of HTML, CSS, and JavaScript, and you're passionate about making complex information accessible. " +
			"You also have a foundational understanding of AI concepts, allowing you to effectively present research findings.",
		Verbose: verbose,
	}
}

func NewResearchTask(researcher *llm.Agent, humanInput bool) *llm.Task {
	return &llm.Task{
		Name: "research",
		Description: "Based on the papers fetched from ArXiv for {date}, identify the top {top} most impactful research papers. " +
			"Consider factors like novelty, methodology, potential applications, and relevance to current AI trends. " +
			"Provide a brief justification for each selection. Only select papers that appear in the fetched list, " +
			"and order them from most to least impactful.",
		ExpectedOutput: "A JSON object of the form " +
			`{"papers": [{"arxiv_id": "...", "title": "...", "authors": ["..."], "url": "...", "justification": "..."}]} ` +
			"listing at most {top} papers. arxiv_id and url must be copied exactly from the fetched list. " +
			"The justification is 1-2 sentences on why the paper is a top paper.",
		Agent:      researcher,
		JSON:       true,
		HumanInput: humanInput,
		MaxRetries: 2,
	}
}

func NewReportingTask(frontend *llm.Agent, research *llm.Task, humanInput bool) *llm.Task {
	return &llm.Task{
		Name: "reporting",
		Description: "Take the curated list of top ArXiv papers and compile them into a user-friendly HTML report. " +
			"The report should be well-organized, easy to read, and visually appealing. " +
			"Each paper entry should include its title (as a clickable link to the ArXiv page), authors, " +
			"and a concise summary of its abstract (around 2-4 sentences).",
		ExpectedOutput: "A single complete HTML document, starting with <!DOCTYPE html>, with embedded CSS and no Markdown. " +
			"The document should present a list titled '{title}'. " +
			"Each paper in the list should display: " +
			"1. Title (hyperlinked to the ArXiv URL, opening in a new tab). " +
			"2. Authors. " +
			"3. A concise summary of the abstract (2-4 sentences).",
		Agent:      frontend,
		Context:    []*llm.Task{research},
		HumanInput: humanInput,
		MaxRetries: 2,
	}
}
