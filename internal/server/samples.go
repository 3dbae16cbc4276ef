package server

type Sample struct {
	Title  string
	Teaser string
	Text   string
}

var samples = []Sample{
	{
		Title:  "Property Rights Case",
		Teaser: "Supreme Court judgment on property rights...",
		Text: `IN THE SUPREME COURT OF INDIA
CIVIL APPELLATE JURISDICTION
Civil Appeal No. 123456 of 2023

ABC Developers                           ...Appellant
Versus
State of Maharashtra & Ors.              ...Respondents

JUDGMENT
The present appeal challenges the judgment dated 15.03.2023 passed by the High Court of Bombay, which upheld the order of the revenue authorities cancelling certain land allotments. The core issue relates to interpretation of development agreements and property rights under Maharashtra Land Revenue Code...`,
	},
	{
		Title:  "Constitutional Matter",
		Teaser: "Constitutional validity challenge...",
		Text: `IN THE HIGH COURT OF DELHI
WRIT PETITION (CIVIL) NO. 789 OF 2023

IN THE MATTER OF:
Challenge to Constitutional Validity of Section 6A of Delhi Rent Control Act

The petitioner has challenged the constitutional validity of the recent amendment to the Delhi Rent Control Act, specifically Section 6A, on grounds of violation of Article 14 and Article 19(1)(g) of the Constitution...`,
	},
	{
		Title:  "Criminal Appeal",
		Teaser: "Criminal appeal regarding evidence...",
		Text: `IN THE SUPREME COURT OF INDIA
CRIMINAL APPELLATE JURISDICTION
Criminal Appeal No. 567 of 2023

State of Karnataka                       ...Appellant
Versus
Mr. XYZ                                 ...Respondent

This criminal appeal arises from the judgment of Karnataka High Court acquitting the respondent. The primary question relates to admissibility of electronic evidence and interpretation of Section 65B of Indian Evidence Act...`,
	},
}
