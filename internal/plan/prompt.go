// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package plan

import (
	"fmt"
	"strings"
)

// SystemRole is the system message sent with every prompt.
const SystemRole = "You are a skilled cook with expertise of a chef."

// RecipeSeparator is the line the model is asked to put between recipes.
var RecipeSeparator = strings.Repeat("-", 50)

// BuildPrompt renders the user prompt for req.
func BuildPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create a healthy daily meal plan for breakfast, lunch, and dinner based on the following ingredients: ```%s```\n",
		strings.Join(req.Ingredients, "\n"))
	b.WriteString("Your output should be in the text format.\n\n")
	b.WriteString("Follow the instructions below carefully.\n\n")
	b.WriteString("### Instructions:\n")

	if req.ExactIngredients {
		b.WriteString("1. Use ONLY the provided ingredients with salt, pepper, and spices.\n")
	} else {
		b.WriteString("1. Feel free to incorporate other common pantry staples.\n")
	}
	b.WriteString("2. Specify the exact amount of each ingredient.\n")
	fmt.Fprintf(&b, "3. Ensure that the total daily calorie intake is below %d.\n", req.MaxKcal)
	b.WriteString("4. For each meal, explain each recipe, step by step, in clear and simple sentences. Use bullet points or numbers to organize the steps.\n")
	b.WriteString("5. For each meal, specify the total number of calories and the number of servings.\n")
	b.WriteString("6. For each meal, provide a concise and descriptive title that summarizes the main ingredients and flavors. The title should not be generic.\n")
	b.WriteString("7. For each recipe, indicate the prep, cook and total time.\n")

	last := 7
	if req.Extra != "" {
		last = 8
		fmt.Fprintf(&b, "8. If possible the meals should be: %s\n", req.Extra)
	}
	fmt.Fprintf(&b, "%d. Separate the recipes with a line of 50 dashes.\n\n", last+1)

	fmt.Fprintf(&b, "Before answering, make sure that you have followed the instructions listed above (points 1 to %d).\n", last+1)
	b.WriteString("The last line of your answer should be a string that contains ONLY the titles of the recipes and nothing more with a comma in between.\n")
	b.WriteString("Example of the last line of your answer:\n")
	b.WriteString("Broccoli and Egg Scramble, Grilled Chicken and Vegetable, Baked Fish and Cabbage Slaw\n")
	return b.String()
}
